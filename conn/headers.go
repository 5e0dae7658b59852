package conn

import (
	"strings"

	"github.com/namjae/plug/kv"
)

// GetReqHeader returns all the values of the request header. Keys are expected to be
// lower-cased.
func (c Conn) GetReqHeader(key string) []string {
	return c.reqHeaders.Values(key)
}

// ReqHeaders returns the request headers in their original order. They must not be modified.
func (c Conn) ReqHeaders() []kv.Pair {
	return c.reqHeaders.Expose()
}

// PutReqHeader replaces the first occurrence of the request header or appends it.
func (c Conn) PutReqHeader(key, value string) (Conn, error) {
	if err := c.validateHeader(key, value); err != nil {
		return c, err
	}

	c.reqHeaders = c.reqHeaders.Clone().Set(key, value)
	return c, nil
}

// PrependReqHeaders inserts the headers in front of the existing request headers.
func (c Conn) PrependReqHeaders(pairs ...kv.Pair) (Conn, error) {
	for _, pair := range pairs {
		if err := c.validateHeader(pair.Key, pair.Value); err != nil {
			return c, err
		}
	}

	c.reqHeaders = c.reqHeaders.Clone().Prepend(pairs...)
	return c, nil
}

// DeleteReqHeader removes every occurrence of the request header.
func (c Conn) DeleteReqHeader(key string) Conn {
	c.reqHeaders = c.reqHeaders.Clone().Delete(key)
	return c
}

// GetRespHeader returns all the values of the response header.
func (c Conn) GetRespHeader(key string) []string {
	return c.respHeaders.Values(key)
}

// RespHeaders returns the response headers in their order. They must not be modified.
func (c Conn) RespHeaders() []kv.Pair {
	return c.respHeaders.Expose()
}

// PutRespHeader replaces the first occurrence of the response header in place or appends
// it to the end.
func (c Conn) PutRespHeader(key, value string) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	if err := c.validateHeader(key, value); err != nil {
		return c, err
	}

	c.respHeaders = c.respHeaders.Clone().Set(key, value)
	return c, nil
}

// PrependRespHeaders inserts the headers in front of the existing response headers.
func (c Conn) PrependRespHeaders(pairs ...kv.Pair) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	for _, pair := range pairs {
		if err := c.validateHeader(pair.Key, pair.Value); err != nil {
			return c, err
		}
	}

	c.respHeaders = c.respHeaders.Clone().Prepend(pairs...)
	return c, nil
}

// MergeRespHeaders puts every header, each replacing the existing one with the same key.
func (c Conn) MergeRespHeaders(pairs ...kv.Pair) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	for _, pair := range pairs {
		if err := c.validateHeader(pair.Key, pair.Value); err != nil {
			return c, err
		}
	}

	headers := c.respHeaders.Clone()
	for _, pair := range pairs {
		headers.Set(pair.Key, pair.Value)
	}

	c.respHeaders = headers
	return c, nil
}

// UpdateRespHeader sets the header to initial when it's missing, otherwise replaces its
// first value with fn applied to it.
func (c Conn) UpdateRespHeader(key, initial string, fn func(string) string) (Conn, error) {
	value, found := c.respHeaders.Get(key)
	if !found {
		return c.PutRespHeader(key, initial)
	}

	return c.PutRespHeader(key, fn(value))
}

// DeleteRespHeader removes every occurrence of the response header.
func (c Conn) DeleteRespHeader(key string) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	c.respHeaders = c.respHeaders.Clone().Delete(key)
	return c, nil
}

// PutRespContentType sets the content-type header. The charset is omitted when empty.
func (c Conn) PutRespContentType(contentType, charset string) (Conn, error) {
	value := contentType
	if len(charset) > 0 {
		value += "; charset=" + charset
	}

	c, err := c.PutRespHeader("content-type", value)
	if err != nil {
		return c, err
	}

	if len(charset) > 0 {
		c.respCharset = charset
	}

	return c, nil
}

// RespCharset returns the charset of the response body.
func (c Conn) RespCharset() string {
	return c.respCharset
}

func (c Conn) mutableResp() error {
	if !c.state.Unsent() {
		return ErrAlreadySent
	}

	return nil
}

func (c Conn) validateHeader(key, value string) error {
	if strings.ContainsAny(key, "\r\n") || strings.ContainsAny(value, "\r\n") {
		return ErrInvalidHeader
	}

	if c.strictKeys && strings.ToLower(key) != key {
		return ErrInvalidHeader
	}

	return nil
}
