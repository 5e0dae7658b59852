package cookie

import (
	"strings"

	"github.com/namjae/plug/kv"
)

// Jar is a key-value storage for cookies received from a user-agent. Key-value pairs
// consist of strings, not cookie.Cookie, as request cookies carry no attributes.
type Jar = *kv.Storage

func NewJar() Jar {
	return kv.New()
}

func NewJarPrealloc(n int) Jar {
	return kv.NewPrealloc(n)
}

// Parse parses cookies, received from a user-agent. These are basically key-value pairs,
// so the function isn't applicable for Set-Cookie values. Pairs without a key or without
// the equals sign are skipped, as user-agents are known to send them.
func Parse(jar Jar, data string) {
	for len(data) > 0 {
		var pair string
		if cs := strings.IndexByte(data, ';'); cs != -1 {
			pair, data = data[:cs], stripSpace(data[cs+1:])
		} else {
			pair, data = data, ""
		}

		eq := strings.IndexByte(pair, '=')
		if eq == -1 {
			continue
		}

		key := strings.TrimSpace(pair[:eq])
		if len(key) == 0 {
			continue
		}

		// empty value is fine
		jar.Add(key, strings.TrimSpace(pair[eq+1:]))
	}
}

// Decode parses every passed Cookie header value into a map. When the same cookie name
// occurs more than once, the first occurrence wins, as user-agents send the most specific
// cookie first.
func Decode(headers ...string) map[string]string {
	jar := NewJarPrealloc(len(headers) * 2)
	for _, header := range headers {
		Parse(jar, header)
	}

	cookies := make(map[string]string, jar.Len())
	for key, value := range jar.Iter() {
		if _, seen := cookies[key]; !seen {
			cookies[key] = value
		}
	}

	return cookies
}

func stripSpace(str string) string {
	if len(str) > 0 && str[0] == ' ' {
		return str[1:]
	}

	return str
}
