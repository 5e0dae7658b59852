package http1

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/utils/strcomp"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
	"github.com/namjae/plug/transport"
)

const (
	HTTP10 = "HTTP/1.0"
	HTTP11 = "HTTP/1.1"
)

var headTerminator = []byte("\r\n\r\n")

// head is the parsed request line and headers together with the body framing they
// describe.
type head struct {
	method, target, protocol string
	headers                  *kv.Storage
	contentLength            int64
	chunked, trailer         bool
	keepAlive                bool
}

// readHead reads the request head from the client. Whatever follows the head is pushed
// back for the body reader. io.EOF is returned only if the client closed the connection
// before sending anything.
func readHead(client transport.Client, maxSize int) (head, error) {
	var buff []byte

	for {
		data, err := client.Read()
		if err != nil {
			if err == io.EOF && len(buff) > 0 {
				return head{}, io.ErrUnexpectedEOF
			}

			return head{}, err
		}

		from := max(0, len(buff)-len(headTerminator)+1)
		buff = append(buff, data...)

		end := bytes.Index(buff[from:], headTerminator)
		if end == -1 {
			if len(buff) > maxSize {
				return head{}, status.ErrHeadTooLarge
			}

			continue
		}

		end += from
		if end > maxSize {
			return head{}, status.ErrHeadTooLarge
		}

		client.Pushback(buff[end+len(headTerminator):])
		return parseHead(string(buff[:end]))
	}
}

func parseHead(raw string) (h head, err error) {
	// tolerate empty lines preceding the request line
	raw = strings.TrimLeft(raw, "\r\n")
	requestLine, rest, _ := strings.Cut(raw, "\r\n")

	h.method, requestLine, _ = strings.Cut(requestLine, " ")
	h.target, h.protocol, _ = strings.Cut(requestLine, " ")
	if len(h.method) == 0 || len(h.target) == 0 || len(h.protocol) == 0 ||
		strings.ContainsRune(h.protocol, ' ') {
		return h, status.ErrBadRequest
	}

	switch h.protocol {
	case HTTP10, HTTP11:
	default:
		return h, status.ErrUnsupportedProtocol
	}

	h.headers = kv.NewPrealloc(strings.Count(rest, "\r\n") + 1)
	for len(rest) > 0 {
		var line string
		line, rest, _ = strings.Cut(rest, "\r\n")

		key, value, found := strings.Cut(line, ":")
		if !found || len(key) == 0 || strings.ContainsAny(key, " \t") {
			return h, status.ErrBadRequest
		}

		h.headers.Add(strings.ToLower(key), strings.TrimSpace(value))
	}

	return h, h.framing()
}

func (h *head) framing() error {
	if encodings := h.headers.Values("transfer-encoding"); len(encodings) > 0 {
		last := encodings[len(encodings)-1]
		if i := strings.LastIndexByte(last, ','); i != -1 {
			last = last[i+1:]
		}

		if !strcomp.EqualFold(strings.TrimSpace(last), "chunked") {
			// the length of such a body is unknowable
			return status.ErrBadRequest
		}

		h.chunked = true
		h.trailer = h.headers.Has("trailer")
		// Transfer-Encoding overrides Content-Length
		h.headers.Delete("content-length")
	} else if length, found := h.headers.Get("content-length"); found {
		n, err := strconv.ParseInt(length, 10, 64)
		if err != nil || n < 0 {
			return status.ErrBadRequest
		}

		h.contentLength = n
	}

	connection := h.headers.Value("connection")
	switch h.protocol {
	case HTTP10:
		h.keepAlive = strcomp.EqualFold(connection, "keep-alive")
	default:
		h.keepAlive = !strcomp.EqualFold(connection, "close")
	}

	return nil
}

// splitTarget separates the path and the query of the request target. Absolute-form
// targets are reduced to their path.
func splitTarget(target string) (path, query string) {
	if i := strings.Index(target, "://"); i != -1 {
		target = target[i+3:]
		if slash := strings.IndexByte(target, '/'); slash != -1 {
			target = target[slash:]
		} else {
			target = "/"
		}
	}

	path, query, _ = strings.Cut(target, "?")
	if len(path) == 0 {
		path = "/"
	}

	return path, query
}

func isHead(method string) bool {
	return method == "HEAD"
}
