package conn

import (
	"time"

	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
)

// Adapter performs the actual I/O on behalf of the connection. Every call returns the
// adapter to be used for the following calls, so implementations may thread their state
// through values. A nil adapter means the current one stays in use.
//
// The returned body is stored as the response body of the connection. Adapters writing
// straight to the wire usually return nil.
type Adapter interface {
	SendResp(code status.Code, headers []kv.Pair, body []byte) ([]byte, Adapter, error)
	SendFile(code status.Code, headers []kv.Pair, path string, offset, length int64) ([]byte, Adapter, error)
	SendChunked(code status.Code, headers []kv.Pair) ([]byte, Adapter, error)
	// Chunk writes a single chunk. The returned body, when non-nil, replaces the response
	// body of the connection.
	Chunk(data []byte) ([]byte, Adapter, error)
	ReadReqBody(opts BodyOptions) (BodyChunk, Adapter, error)
}

// Informer is implemented by adapters capable of sending 1xx responses.
type Informer interface {
	Inform(code status.Code, headers []kv.Pair) (Adapter, error)
}

// Upgrader is implemented by adapters capable of handing the connection over to
// another protocol.
type Upgrader interface {
	Upgrade(protocol string, args any) (Adapter, error)
}

// BodyChunk is a piece of the request body. More is set when the body wasn't read
// completely, so ReadBody must be called again.
type BodyChunk struct {
	Data []byte
	More bool
}

// BodyOptions limit a single body read.
type BodyOptions struct {
	// Length is the maximal number of bytes returned by a single read.
	Length int
	// ReadLength is the number of bytes requested from the transport at once.
	ReadLength int
	// ReadTimeout limits every single transport read.
	ReadTimeout time.Duration
}

// DefaultBodyOptions returns the limits body reads use unless overridden.
func DefaultBodyOptions() BodyOptions {
	return BodyOptions{
		Length:      8_000_000,
		ReadLength:  1_000_000,
		ReadTimeout: 15 * time.Second,
	}
}

// withDefaults replaces non-positive limits by the defaults, as a read of zero bytes would
// never make progress.
func (o BodyOptions) withDefaults() BodyOptions {
	defaults := DefaultBodyOptions()
	if o.Length <= 0 {
		o.Length = defaults.Length
	}

	if o.ReadLength <= 0 {
		o.ReadLength = defaults.ReadLength
	}

	return o
}

type BodyOption func(*BodyOptions)

func WithLength(n int) BodyOption {
	return func(o *BodyOptions) {
		o.Length = n
	}
}

func WithReadLength(n int) BodyOption {
	return func(o *BodyOptions) {
		o.ReadLength = n
	}
}

func WithReadTimeout(timeout time.Duration) BodyOption {
	return func(o *BodyOptions) {
		o.ReadTimeout = timeout
	}
}
