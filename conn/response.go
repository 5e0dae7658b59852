package conn

import (
	"slices"

	"github.com/namjae/plug/http/status"
)

// Status returns the response status code. Zero means no status was set.
func (c Conn) Status() status.Code {
	return c.status
}

// RespBody returns the response body. After the commit it's whatever the adapter returned.
func (c Conn) RespBody() []byte {
	return c.respBody
}

// PutStatus sets the response status code. Zero clears it.
func (c Conn) PutStatus(code status.Code) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	c.status = code
	return c, nil
}

// Resp stages a buffered response without sending it. It may be called repeatedly
// until the response is sent, each call overriding the previous one.
func (c Conn) Resp(code status.Code, body []byte) (Conn, error) {
	if !c.stageable() {
		return c, ErrAlreadySent
	}

	if code == 0 {
		return c, ErrInvalidStatus
	}

	c.state = Set
	c.status = code
	c.respBody = slices.Clip(body)
	return c, nil
}

// RespString is Resp with a string body.
func (c Conn) RespString(code status.Code, body string) (Conn, error) {
	return c.Resp(code, []byte(body))
}

// BeforeSendFunc is a callback invoked right before the response is handed to the
// adapter. It must not change the connection state.
type BeforeSendFunc func(Conn) Conn

// RegisterBeforeSend registers the callback. Callbacks run in reverse order of registration.
// Registering from within a callback fails, as the callbacks of the commit are already taken.
func (c Conn) RegisterBeforeSend(fn BeforeSendFunc) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	if c.committing {
		return c, ErrAlreadySent
	}

	c.beforeSend = append([]BeforeSendFunc{fn}, c.beforeSend...)
	return c, nil
}
