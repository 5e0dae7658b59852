package conn

import (
	"maps"
	"slices"
	"time"

	"github.com/namjae/plug/http/cookie"
)

type respCookie struct {
	cookie cookie.Cookie
	// plain is the value before signing or encryption.
	plain string
}

type cookieFetch struct {
	signed, encrypted []string
}

type CookieFetchOption func(*cookieFetch)

// Signed marks the cookies as signed, so their signatures are verified on fetch. Cookies
// with a bad signature are dropped.
func Signed(names ...string) CookieFetchOption {
	return func(f *cookieFetch) {
		f.signed = append(f.signed, names...)
	}
}

// Encrypted marks the cookies as encrypted, so they are decrypted on fetch. Cookies
// failing to decrypt are dropped.
func Encrypted(names ...string) CookieFetchOption {
	return func(f *cookieFetch) {
		f.encrypted = append(f.encrypted, names...)
	}
}

// FetchCookies parses the request cookies and merges the response cookies over them.
// Fetching again without options is a no-op.
func (c Conn) FetchCookies(opts ...CookieFetchOption) (Conn, error) {
	if c.cookies.Fetched() && len(opts) == 0 {
		return c, nil
	}

	c, err := c.fetchReqCookies()
	if err != nil {
		return c, err
	}

	var fetch cookieFetch
	for _, opt := range opts {
		opt(&fetch)
	}

	reqCookies, _ := c.reqCookies.Get()
	cookies := make(map[string]string, len(reqCookies))
	maps.Copy(cookies, reqCookies)

	for _, name := range fetch.signed {
		if err = c.decodeReqCookie(cookies, name, c.keys.Verify); err != nil {
			return c, err
		}
	}

	for _, name := range fetch.encrypted {
		if err = c.decodeReqCookie(cookies, name, c.keys.Decrypt); err != nil {
			return c, err
		}
	}

	for _, rc := range c.respCookies {
		if rc.cookie.MaxAge < 0 {
			delete(cookies, rc.cookie.Name)
		} else {
			cookies[rc.cookie.Name] = rc.plain
		}
	}

	c.cookies = Fetched(AspectCookies, cookies)
	return c, nil
}

func (c Conn) decodeReqCookie(
	cookies map[string]string, name string, decode func(name, value string) (string, error),
) error {
	value, found := cookies[name]
	if !found {
		return nil
	}

	decoded, err := decode(name, value)
	switch err {
	case nil:
		cookies[name] = decoded
	case cookie.ErrNoSecret:
		return err
	default:
		delete(cookies, name)
	}

	return nil
}

func (c Conn) fetchReqCookies() (Conn, error) {
	if c.reqCookies.Fetched() {
		return c, nil
	}

	c.reqCookies = Fetched(AspectReqCookies, cookie.Decode(c.reqHeaders.Values("cookie")...))
	return c, nil
}

// Cookies returns the fetched cookies: request cookies with response cookies merged over.
func (c Conn) Cookies() (map[string]string, error) {
	return c.cookies.Get()
}

// ReqCookies returns the cookies sent by the client, as they are.
func (c Conn) ReqCookies() (map[string]string, error) {
	return c.reqCookies.Get()
}

// RespCookies returns the response cookies in the order they were first put.
func (c Conn) RespCookies() []cookie.Cookie {
	cookies := make([]cookie.Cookie, len(c.respCookies))
	for i, rc := range c.respCookies {
		cookies[i] = rc.cookie
	}

	return cookies
}

// PutRespCookie stages a response cookie. Cookies are secure by default when the request
// came over https. Putting the same cookie again replaces it in place.
func (c Conn) PutRespCookie(name, value string, opts ...cookie.Option) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	if err := c.validateHeader(name, value); err != nil {
		return c, err
	}

	options := c.cookieOptions(opts)
	encoded := value

	var err error
	switch {
	case options.Encrypt:
		encoded, err = c.keys.Encrypt(name, value)
	case options.Sign:
		encoded, err = c.keys.Sign(name, value)
	}

	if err != nil {
		return c, err
	}

	if options.MaxAge > 0 && options.Expires.IsZero() {
		options.Expires = c.clock.Now().Add(time.Duration(options.MaxAge) * time.Second)
	}

	rendered := options.Cookie(name, encoded)
	if size := len(cookie.Render(rendered)); size > cookie.MaxSize {
		return c, cookie.ErrCookieTooLarge{Name: name, Size: size, Max: cookie.MaxSize}
	}

	c = c.putRespCookie(respCookie{cookie: rendered, plain: value})
	if cookies, err := c.cookies.Get(); err == nil {
		cookies = cloneMap(cookies)
		cookies[name] = value
		c.cookies = Fetched(AspectCookies, cookies)
	}

	return c, nil
}

// DeleteRespCookie stages a cookie instructing the client to drop it. The path and domain
// must match the ones the cookie was put with.
func (c Conn) DeleteRespCookie(name string, opts ...cookie.Option) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	c = c.putRespCookie(respCookie{cookie: cookie.Expired(name, c.cookieOptions(opts))})
	if cookies, err := c.cookies.Get(); err == nil {
		cookies = cloneMap(cookies)
		delete(cookies, name)
		c.cookies = Fetched(AspectCookies, cookies)
	}

	return c, nil
}

func (c Conn) cookieOptions(opts []cookie.Option) cookie.Options {
	options := cookie.Apply(c.cookieOpts, opts...)
	if !options.SecureSet {
		options.Secure = c.Scheme == "https"
	}

	return options
}

func (c Conn) putRespCookie(rc respCookie) Conn {
	cookies := slices.Clone(c.respCookies)
	index := slices.IndexFunc(cookies, func(existing respCookie) bool {
		return existing.cookie.Name == rc.cookie.Name
	})

	if index == -1 {
		cookies = append(cookies, rc)
	} else {
		cookies[index] = rc
	}

	c.respCookies = cookies
	return c
}
