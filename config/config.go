// Package config holds the knobs of a plug server. Values come from Default, then an
// optional YAML file, then the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/cookie"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the configuration is read from.
const EnvPrefix = "PLUG_"

type (
	Body struct {
		// Length is the maximal number of bytes a single body read may return.
		Length int `yaml:"length" env:"LENGTH"`
		// ReadLength is the number of bytes requested from the transport at once.
		ReadLength int `yaml:"read_length" env:"READ_LENGTH"`
		// ReadTimeout limits every single transport read.
		ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	}

	Headers struct {
		// ValidateKeys rejects response header keys which aren't lower-cased. It's
		// rather a development aid, as it costs an extra pass over every key.
		ValidateKeys bool `yaml:"validate_keys" env:"VALIDATE_KEYS" test:"nullable"`
		// DefaultCharset is reported until the content type is put explicitly.
		DefaultCharset string `yaml:"default_charset" env:"DEFAULT_CHARSET"`
	}

	Cookie struct {
		Path     string `yaml:"path" env:"PATH"`
		Domain   string `yaml:"domain" env:"DOMAIN" test:"nullable"`
		HTTPOnly bool   `yaml:"http_only" env:"HTTP_ONLY"`
		SameSite string `yaml:"same_site" env:"SAME_SITE"`
	}

	Session struct {
		// Key is the name of the cookie carrying the session.
		Key string `yaml:"key" env:"KEY"`
		// Store is one of cookie, memory, redis or pebble.
		Store string `yaml:"store" env:"STORE"`
		// Encrypt encrypts the session cookie instead of only signing it.
		Encrypt bool          `yaml:"encrypt" env:"ENCRYPT" test:"nullable"`
		TTL     time.Duration `yaml:"ttl" env:"TTL"`
		// RedisURL is used by the redis store only.
		RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
		// PebblePath is the directory of the pebble store. Empty value means the
		// current directory, therefore it's required to be set explicitly.
		PebblePath string `yaml:"pebble_path" env:"PEBBLE_PATH"`
	}

	Secret struct {
		// KeyBase is the secret signed and encrypted cookies derive their keys from.
		// Without it, neither is available.
		KeyBase string `yaml:"key_base" env:"KEY_BASE" test:"nullable"`
	}

	Server struct {
		Addr string `yaml:"addr" env:"ADDR"`
		// Transport is one of nethttp, fasthttp or http1.
		Transport string `yaml:"transport" env:"TRANSPORT"`
		// ReadTimeout is the time allowed to read a request head.
		ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
		// IdleTimeout is the time a keep-alive connection may stay silent.
		IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
		// AcceptInterrupt is how often the accept loop of the http1 transport checks
		// whether it must stop.
		AcceptInterrupt time.Duration `yaml:"accept_interrupt" env:"ACCEPT_INTERRUPT"`
		// AutocertDomains enables TLS with certificates obtained via ACME.
		AutocertDomains []string `yaml:"autocert_domains" env:"AUTOCERT_DOMAINS" test:"nullable"`
		AutocertCache   string   `yaml:"autocert_cache" env:"AUTOCERT_CACHE"`
		// RateLimit is the number of requests per second allowed per client. Zero
		// disables limiting.
		RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT" test:"nullable"`
		RateBurst int     `yaml:"rate_burst" env:"RATE_BURST"`
		// MetricsAddr is where prometheus metrics are served over plain net/http.
		// Empty value disables the endpoint.
		MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	}

	Log struct {
		// Level is one of debug, info, warn or error.
		Level string `yaml:"level" env:"LEVEL"`
		// Format is either text or json.
		Format string `yaml:"format" env:"FORMAT"`
	}
)

// Config holds settings for the connections and the server producing them.
type Config struct {
	Body    Body    `yaml:"body" envPrefix:"BODY_"`
	Headers Headers `yaml:"headers" envPrefix:"HEADERS_"`
	Cookie  Cookie  `yaml:"cookie" envPrefix:"COOKIE_"`
	Session Session `yaml:"session" envPrefix:"SESSION_"`
	Secret  Secret  `yaml:"secret" envPrefix:"SECRET_"`
	Server  Server  `yaml:"server" envPrefix:"SERVER_"`
	Log     Log     `yaml:"log" envPrefix:"LOG_"`
}

// Default returns well-balanced default config.
func Default() *Config {
	return &Config{
		Body: Body{
			Length:      8_000_000,
			ReadLength:  1_000_000,
			ReadTimeout: 15 * time.Second,
		},
		Headers: Headers{
			ValidateKeys:   false,
			DefaultCharset: "utf-8",
		},
		Cookie: Cookie{
			Path:     "/",
			HTTPOnly: true,
			SameSite: cookie.SameSiteLax,
		},
		Session: Session{
			Key:        "_plug_session",
			Store:      "cookie",
			TTL:        24 * time.Hour,
			RedisURL:   "redis://localhost:6379/0",
			PebblePath: "sessions",
		},
		Server: Server{
			Addr:            "0.0.0.0:8080",
			Transport:       "nethttp",
			ReadTimeout:     90 * time.Second,
			IdleTimeout:     90 * time.Second,
			AcceptInterrupt: 5 * time.Second,
			AutocertCache:   "certs",
			RateBurst:       10,
			MetricsAddr:     "127.0.0.1:9090",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the default config overridden by the YAML file at path, if any, and then by
// the environment. A .env file in the working directory is loaded into the environment
// first, without replacing variables which are already set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}

		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	return cfg, cfg.Validate()
}

// Validate reports settings which can't work together.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "nethttp", "fasthttp", "http1":
	default:
		return errors.Errorf("unknown transport: %q", c.Server.Transport)
	}

	switch c.Session.Store {
	case "cookie", "memory", "redis", "pebble":
	default:
		return errors.Errorf("unknown session store: %q", c.Session.Store)
	}

	if c.Body.Length <= 0 || c.Body.ReadLength <= 0 {
		return errors.New("body lengths must be positive")
	}

	return nil
}

// BodyOptions returns the defaults request body reads use.
func (c *Config) BodyOptions() conn.BodyOptions {
	return conn.BodyOptions{
		Length:      c.Body.Length,
		ReadLength:  c.Body.ReadLength,
		ReadTimeout: c.Body.ReadTimeout,
	}
}

// CookieOptions returns the attributes response cookies start with.
func (c *Config) CookieOptions() cookie.Options {
	opts := cookie.DefaultOptions()
	opts.Path = c.Cookie.Path
	opts.Domain = c.Cookie.Domain
	opts.HttpOnly = c.Cookie.HTTPOnly
	opts.SameSite = c.Cookie.SameSite

	return opts
}

// ConnOptions returns the options every connection of the server is created with.
func (c *Config) ConnOptions() []conn.Option {
	opts := []conn.Option{
		conn.WithBodyDefaults(c.BodyOptions()),
		conn.WithCookieDefaults(c.CookieOptions()),
		conn.WithHeaderKeyValidation(c.Headers.ValidateKeys),
		conn.WithDefaultCharset(c.Headers.DefaultCharset),
	}

	if len(c.Secret.KeyBase) > 0 {
		opts = append(opts, conn.WithSecretKeyBase(cookie.NewKeyGenerator(c.Secret.KeyBase)))
	}

	return opts
}
