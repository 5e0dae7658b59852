package conn

import (
	"strings"

	"github.com/namjae/plug/http/cookie"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
)

// SendResp hands the staged response over to the adapter. The response must be staged
// with Resp beforehand.
func (c Conn) SendResp() (Conn, error) {
	if c.committing {
		return c, ErrAlreadySent
	}

	switch c.state {
	case Unset:
		return c, ErrNotSet
	case Set:
	default:
		return c, ErrAlreadySent
	}

	committed, err := c.runBeforeSend(Set)
	if err != nil {
		return c, err
	}

	body, next, err := committed.adapter.SendResp(committed.status, committed.respHeaders.Expose(), committed.respBody)
	if err != nil {
		return c, transportError("send_resp", err)
	}

	return committed.committed(Sent, body, next), nil
}

// Send stages the response and sends it at once.
func (c Conn) Send(code status.Code, body []byte) (Conn, error) {
	c, err := c.Resp(code, body)
	if err != nil {
		return c, err
	}

	return c.SendResp()
}

// SendString is Send with a string body.
func (c Conn) SendString(code status.Code, body string) (Conn, error) {
	return c.Send(code, []byte(body))
}

// SendFile hands the file over to the adapter. A negative length means the rest of
// the file after the offset.
func (c Conn) SendFile(code status.Code, path string, offset, length int64) (Conn, error) {
	if !c.stageable() {
		return c, ErrAlreadySent
	}

	if code == 0 {
		return c, ErrInvalidStatus
	}

	if strings.IndexByte(path, 0) != -1 {
		return c, ErrInvalidFilePath
	}

	c.status = code
	committed, err := c.runBeforeSend(SetFile)
	if err != nil {
		return c, err
	}

	body, next, err := committed.adapter.SendFile(committed.status, committed.respHeaders.Expose(), path, offset, length)
	if err != nil {
		return c, transportError("send_file", err)
	}

	return committed.committed(File, body, next), nil
}

// SendChunked starts a chunked response. Chunks are written with Chunk afterward.
func (c Conn) SendChunked(code status.Code) (Conn, error) {
	if !c.stageable() {
		return c, ErrAlreadySent
	}

	if code == 0 {
		return c, ErrInvalidStatus
	}

	c.status = code
	committed, err := c.runBeforeSend(SetChunked)
	if err != nil {
		return c, err
	}

	body, next, err := committed.adapter.SendChunked(committed.status, committed.respHeaders.Expose())
	if err != nil {
		return c, transportError("send_chunked", err)
	}

	return committed.committed(Chunked, body, next), nil
}

// Chunk writes the data as a single chunk of the response started by SendChunked.
// Writing an empty chunk does nothing, as it would otherwise terminate the response.
func (c Conn) Chunk(data []byte) (Conn, error) {
	if c.state != Chunked {
		return c, ErrNotChunked
	}

	if len(data) == 0 {
		return c, nil
	}

	body, next, err := c.adapter.Chunk(data)
	if err != nil {
		return c, transportError("chunk", err)
	}

	if next != nil {
		c.adapter = next
	}

	if body != nil {
		c.respBody = body
	}

	return c, nil
}

// ChunkString is Chunk with a string payload.
func (c Conn) ChunkString(data string) (Conn, error) {
	return c.Chunk([]byte(data))
}

// runBeforeSend moves the connection into the staged state, runs the before-send callbacks
// and merges the response cookies into the headers.
func (c Conn) runBeforeSend(staged State) (Conn, error) {
	c.state = staged
	c.committing = true
	callbacks := c.beforeSend
	c.beforeSend = nil

	for _, fn := range callbacks {
		c = fn(c)
		if c.state != staged {
			return c, ErrBeforeSendStateChanged
		}
	}

	c.committing = false
	c.respHeaders = mergeCookies(c.respHeaders, c.respCookies)
	return c, nil
}

// mergeCookies folds the cookies in their order, prepending each of them to the headers.
func mergeCookies(headers *kv.Storage, cookies []respCookie) *kv.Storage {
	merged := headers.Clone()
	for _, rc := range cookies {
		merged.Prepend(kv.Pair{Key: "set-cookie", Value: cookie.Render(rc.cookie)})
	}

	return merged
}

func (c Conn) committed(state State, body []byte, next Adapter) Conn {
	if next != nil {
		c.adapter = next
	}

	c.respBody = body
	c.state = state
	if c.owner != nil {
		c.owner.AlreadySent()
	}

	return c
}

// stageable reports whether a response may be staged. Nothing may be staged while the
// before-send callbacks of a commit run, so callbacks can't start another commit.
func (c Conn) stageable() bool {
	return !c.committing && (c.state == Unset || c.state == Set)
}
