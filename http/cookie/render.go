package cookie

import (
	"strconv"
	"time"

	"github.com/indigo-web/utils/uf"
)

// TimeFormat is the layout of the expires attribute.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// MaxSize is the maximal size of a rendered cookie accepted by the most user-agents.
const MaxSize = 4096

// Render encodes the cookie into a Set-Cookie header value. Negative MaxAge is rendered
// as max-age=0.
func Render(c Cookie) string {
	return uf.B2S(AppendRender(make([]byte, 0, 64+len(c.Name)+len(c.Value)), c))
}

// AppendRender appends the encoded cookie to the buffer.
func AppendRender(buff []byte, c Cookie) []byte {
	buff = append(buff, c.Name...)
	buff = append(buff, '=')
	buff = append(buff, c.Value...)

	if len(c.Path) > 0 {
		buff = append(buff, "; path="...)
		buff = append(buff, c.Path...)
	}

	if len(c.Domain) > 0 {
		buff = append(buff, "; domain="...)
		buff = append(buff, c.Domain...)
	}

	if !c.Expires.IsZero() {
		buff = append(buff, "; expires="...)
		buff = c.Expires.UTC().AppendFormat(buff, TimeFormat)
	}

	switch {
	case c.MaxAge > 0:
		buff = append(buff, "; max-age="...)
		buff = strconv.AppendInt(buff, int64(c.MaxAge), 10)
	case c.MaxAge < 0:
		buff = append(buff, "; max-age=0"...)
	}

	if c.Secure {
		buff = append(buff, "; secure"...)
	}

	if c.HttpOnly {
		buff = append(buff, "; HttpOnly"...)
	}

	if len(c.SameSite) > 0 {
		buff = append(buff, "; SameSite="...)
		buff = append(buff, c.SameSite...)
	}

	if len(c.Extra) > 0 {
		buff = append(buff, "; "...)
		buff = append(buff, c.Extra...)
	}

	return buff
}

// Expired returns a cookie instructing user-agents to drop the cookie with the name.
func Expired(name string, opts Options) Cookie {
	opts.MaxAge = -1
	opts.Expires = time.Unix(0, 0).UTC()
	return opts.Cookie(name, "")
}
