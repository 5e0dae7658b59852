package cookie

import "time"

// Options holds the attributes a response cookie is put with.
type Options struct {
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	SameSite SameSite
	Secure   bool
	HttpOnly bool
	Extra    string
	// SecureSet marks Secure as explicitly chosen. Otherwise, it's derived from the
	// connection scheme.
	SecureSet bool
	Sign      bool
	Encrypt   bool
}

// Option is a functional option for configuring cookie options.
type Option func(*Options)

// DefaultOptions returns the attributes every response cookie starts with.
func DefaultOptions() Options {
	return Options{
		Path:     "/",
		HttpOnly: true,
	}
}

func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

func WithDomain(domain string) Option {
	return func(o *Options) {
		o.Domain = domain
	}
}

// WithMaxAge sets the cookie max-age in seconds. Negative values delete the cookie
// immediately.
func WithMaxAge(seconds int) Option {
	return func(o *Options) {
		o.MaxAge = seconds
	}
}

func WithExpires(expires time.Time) Option {
	return func(o *Options) {
		o.Expires = expires
	}
}

// WithSecure overrides the secure flag, which otherwise follows the request scheme.
func WithSecure(secure bool) Option {
	return func(o *Options) {
		o.Secure = secure
		o.SecureSet = true
	}
}

func WithHTTPOnly(httpOnly bool) Option {
	return func(o *Options) {
		o.HttpOnly = httpOnly
	}
}

func WithSameSite(sameSite SameSite) Option {
	return func(o *Options) {
		o.SameSite = sameSite
	}
}

// WithExtra appends a raw attribute string to the rendered cookie.
func WithExtra(extra string) Option {
	return func(o *Options) {
		o.Extra = extra
	}
}

// WithSign signs the value with a key derived from the secret key base.
func WithSign() Option {
	return func(o *Options) {
		o.Sign = true
	}
}

// WithEncrypt encrypts the value with a key derived from the secret key base. Encryption
// takes precedence over signing, as the encrypted payload is authenticated anyway.
func WithEncrypt() Option {
	return func(o *Options) {
		o.Encrypt = true
	}
}

// Apply returns a copy of base with all the options applied.
func Apply(base Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&base)
	}

	return base
}

// Cookie builds a cookie with the attributes.
func (o Options) Cookie(name, value string) Cookie {
	return Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		Expires:  o.Expires,
		MaxAge:   o.MaxAge,
		SameSite: o.SameSite,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		Extra:    o.Extra,
	}
}
