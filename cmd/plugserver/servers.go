package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/namjae/plug/adapter/fasthttp"
	"github.com/namjae/plug/adapter/http1"
	"github.com/namjae/plug/adapter/nethttp"
	"github.com/namjae/plug/config"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/internal/strutil"
	"github.com/namjae/plug/pipeline"
	"github.com/namjae/plug/session"
	"github.com/namjae/plug/transport"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	fast "github.com/valyala/fasthttp"
	"golang.org/x/crypto/acme/autocert"
)

const shutdownTimeout = 10 * time.Second

// serve blocks until the context is done or the server fails.
func serve(ctx context.Context, cfg *config.Config, plug pipeline.Plug, logger *slog.Logger) error {
	addr := strutil.NormalizeAddress(cfg.Server.Addr)
	tlsConfig := autocertConfig(cfg.Server)

	switch cfg.Server.Transport {
	case "nethttp":
		return serveNetHTTP(ctx, cfg, addr, tlsConfig, plug, logger)
	case "fasthttp":
		return serveFastHTTP(ctx, cfg, addr, tlsConfig, plug, logger)
	case "http1":
		return serveHTTP1(ctx, cfg, addr, tlsConfig, plug, logger)
	default:
		return errors.Errorf("unknown transport: %q", cfg.Server.Transport)
	}
}

// autocertConfig returns nil unless domains for ACME certificates are configured.
func autocertConfig(cfg config.Server) *tls.Config {
	if len(cfg.AutocertDomains) == 0 {
		return nil
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.AutocertDomains...),
		Cache:      autocert.DirCache(cfg.AutocertCache),
	}

	return m.TLSConfig()
}

func scheme(tlsConfig *tls.Config) string {
	if tlsConfig != nil {
		return "https"
	}

	return "http"
}

func listen(addr string, tlsConfig *tls.Config) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}

	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	return ln, nil
}

func serveNetHTTP(
	ctx context.Context, cfg *config.Config, addr string, tlsConfig *tls.Config,
	plug pipeline.Plug, logger *slog.Logger,
) error {
	ln, err := listen(addr, tlsConfig)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler: nethttp.NewHandler(plug, logger,
			nethttp.WithConnOptions(cfg.ConnOptions()...),
			nethttp.WithMaxBodySize(int64(cfg.Body.Length)),
		),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err = server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func serveFastHTTP(
	ctx context.Context, cfg *config.Config, addr string, tlsConfig *tls.Config,
	plug pipeline.Plug, logger *slog.Logger,
) error {
	ln, err := listen(addr, tlsConfig)
	if err != nil {
		return err
	}

	handler := fasthttp.NewHandler(plug, logger, cfg.ConnOptions()...)
	server := &fast.Server{
		Handler:            handler.Handle,
		ReadTimeout:        cfg.Server.ReadTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		MaxRequestBodySize: cfg.Body.Length,
		Name:               "plug",
	}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown()
	}()

	return server.Serve(ln)
}

// acceptor is implemented by both transport.TCP and transport.TLS.
type acceptor interface {
	Bind(addr string) error
	Listen(cb func(net.Conn)) error
	Stop()
	Wait()
	Close() error
}

func serveHTTP1(
	ctx context.Context, cfg *config.Config, addr string, tlsConfig *tls.Config,
	plug pipeline.Plug, logger *slog.Logger,
) error {
	opts := http1.DefaultOptions()
	opts.Scheme = scheme(tlsConfig)
	opts.IdleTimeout = cfg.Server.IdleTimeout
	opts.ConnOptions = cfg.ConnOptions()
	server := http1.NewServer(plug, logger, opts)

	var tcp acceptor = transport.NewTCP(cfg.Server.AcceptInterrupt)
	if tlsConfig != nil {
		tcp = transport.NewTLS(tlsConfig, cfg.Server.AcceptInterrupt)
	}

	if err := tcp.Bind(addr); err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}

	go func() {
		<-ctx.Done()
		tcp.Stop()
	}()

	err := tcp.Listen(server.ServeConn)
	tcp.Wait()
	_ = tcp.Close()

	return err
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", logattr.Error(err))
	}
}

// newStore opens the configured session store. The returned func releases it.
func newStore(ctx context.Context, cfg config.Session, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.Store {
	case "cookie":
		return session.NewCookieStore(), func() {}, nil
	case "memory":
		store := session.NewMemoryStore(cfg.TTL, nil)
		go sweep(ctx, store, cfg.TTL, logger)
		return store, func() {}, nil
	case "redis":
		client, err := session.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}

		if err = client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}

		return session.NewRedisStore(client, "", cfg.TTL), func() { _ = client.Close() }, nil
	case "pebble":
		db, err := session.OpenPebble(cfg.PebblePath, nil)
		if err != nil {
			return nil, nil, err
		}

		return session.NewPebbleStore(db, cfg.TTL, nil), func() { _ = db.Close() }, nil
	default:
		return nil, nil, errors.Errorf("unknown session store: %q", cfg.Store)
	}
}

// sweep drops expired sessions from the memory store until the context is done.
func sweep(ctx context.Context, store *session.MemoryStore, ttl time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(max(ttl/2, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.DeleteExpired(); n > 0 {
				logger.Debug("expired sessions dropped", slog.Int("count", n))
			}
		}
	}
}
