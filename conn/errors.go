package conn

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadySent            = errors.New("the response was already sent")
	ErrNotSet                 = errors.New("the response was not set, use Resp before SendResp")
	ErrNotChunked             = errors.New("the response is not chunked, use SendChunked before Chunk")
	ErrBeforeSendStateChanged = errors.New("a before-send callback changed the connection state")
	ErrSessionNotConfigured   = errors.New("session is not configured, install the session plug first")
	ErrSessionNotFetched      = errors.New("session was not fetched, use FetchSession first")
	ErrInvalidHeader          = errors.New("invalid header")
	ErrInvalidStatus          = errors.New("invalid status code")
	ErrInvalidFilePath        = errors.New("file path contains a null byte")
	ErrUpgradeUnsupported     = errors.New("the adapter does not support the upgrade")
	ErrNoAssign               = errors.New("no such assign")
	ErrBodyTooLarge           = errors.New("request body exceeds the length limit")
)

// TransportError wraps a failure reported by the adapter. The wrapped error is kept
// verbatim.
type TransportError struct {
	// Op is the adapter operation that failed.
	Op  string
	Err error
}

func (t *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %s", t.Op, t.Err)
}

func (t *TransportError) Unwrap() error {
	return t.Err
}

func transportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
