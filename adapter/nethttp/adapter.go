// Package nethttp runs connections on top of net/http.
package nethttp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
	pkgerrors "github.com/pkg/errors"
)

// ProtocolWebSocket is the only protocol the adapter upgrades to.
const ProtocolWebSocket = "websocket"

var (
	ErrUnknownProtocol = errors.New("unknown upgrade protocol")
	ErrBadUpgradeArgs  = errors.New("websocket upgrade expects a WebSocketHandler")
)

// WebSocketHandler serves the connection once it's upgraded. The connection is closed
// after it returns.
type WebSocketHandler func(ctx context.Context, ws *websocket.Conn) error

var (
	_ conn.Informer = new(Adapter)
	_ conn.Upgrader = new(Adapter)
)

// Adapter writes the response of a single request into the http.ResponseWriter. It's
// stateful, so every call returns nil as the next adapter.
type Adapter struct {
	w       http.ResponseWriter
	r       *http.Request
	body    *bufio.Reader
	flusher http.Flusher
	// ws is set once the connection is upgraded to websocket
	ws WebSocketHandler
}

func newAdapter(w http.ResponseWriter, r *http.Request) *Adapter {
	flusher, _ := w.(http.Flusher)
	return &Adapter{
		w:       w,
		r:       r,
		flusher: flusher,
	}
}

func (a *Adapter) SendResp(code status.Code, headers []kv.Pair, body []byte) ([]byte, conn.Adapter, error) {
	a.writeHeaders(headers)
	if status.AllowsBody(code) {
		a.w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}

	a.w.WriteHeader(int(code))
	if !status.AllowsBody(code) || a.r.Method == http.MethodHead {
		return nil, nil, nil
	}

	_, err := a.w.Write(body)
	return nil, nil, pkgerrors.Wrap(err, "write response")
}

func (a *Adapter) SendFile(
	code status.Code, headers []kv.Pair, path string, offset, length int64,
) ([]byte, conn.Adapter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "open file")
	}

	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "stat file")
	}

	offset = min(offset, stat.Size())
	if length < 0 || offset+length > stat.Size() {
		length = stat.Size() - offset
	}

	if _, err = file.Seek(offset, io.SeekStart); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "seek file")
	}

	a.writeHeaders(headers)
	a.w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	a.w.WriteHeader(int(code))
	if a.r.Method == http.MethodHead {
		return nil, nil, nil
	}

	_, err = io.CopyN(a.w, file, length)
	return nil, nil, pkgerrors.Wrap(err, "send file")
}

func (a *Adapter) SendChunked(code status.Code, headers []kv.Pair) ([]byte, conn.Adapter, error) {
	a.writeHeaders(headers)
	a.w.Header().Del("Content-Length")
	a.w.WriteHeader(int(code))
	a.flush()
	return nil, nil, nil
}

func (a *Adapter) Chunk(data []byte) ([]byte, conn.Adapter, error) {
	if _, err := a.w.Write(data); err != nil {
		return nil, nil, pkgerrors.Wrap(err, "write chunk")
	}

	a.flush()
	return nil, nil, nil
}

// ReadReqBody reads at most opts.Length bytes of the body. The read deadline is set
// when the underlying connection supports it; ReadLength is left to net/http.
func (a *Adapter) ReadReqBody(opts conn.BodyOptions) (conn.BodyChunk, conn.Adapter, error) {
	if a.body == nil {
		a.body = bufio.NewReader(a.r.Body)
	}

	if opts.ReadTimeout > 0 {
		err := http.NewResponseController(a.w).SetReadDeadline(time.Now().Add(opts.ReadTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return conn.BodyChunk{}, nil, pkgerrors.Wrap(err, "set read deadline")
		}
	}

	data, err := io.ReadAll(io.LimitReader(a.body, int64(opts.Length)))
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			err = status.ErrBodyTooLarge
		}

		return conn.BodyChunk{}, nil, pkgerrors.Wrap(err, "read body")
	}

	var more bool
	if len(data) == opts.Length {
		_, err = a.body.Peek(1)
		more = err == nil
	}

	return conn.BodyChunk{Data: data, More: more}, nil, nil
}

// Inform sends an informational response. The headers are sent with it only.
func (a *Adapter) Inform(code status.Code, headers []kv.Pair) (conn.Adapter, error) {
	header := a.w.Header()
	saved := header.Clone()
	a.writeHeaders(headers)
	a.w.WriteHeader(int(code))

	for key := range header {
		delete(header, key)
	}

	for key, values := range saved {
		header[key] = values
	}

	return nil, nil
}

// Upgrade accepts the websocket protocol only, and the handler serving it as args. The
// handshake happens once the pipeline returns.
func (a *Adapter) Upgrade(protocol string, args any) (conn.Adapter, error) {
	if protocol != ProtocolWebSocket {
		return nil, ErrUnknownProtocol
	}

	handler, ok := args.(WebSocketHandler)
	if !ok {
		fn, isFunc := args.(func(context.Context, *websocket.Conn) error)
		if !isFunc {
			return nil, ErrBadUpgradeArgs
		}

		handler = fn
	}

	a.ws = handler
	return nil, nil
}

func (a *Adapter) writeHeaders(headers []kv.Pair) {
	header := a.w.Header()
	for _, pair := range headers {
		header.Add(pair.Key, pair.Value)
	}
}

func (a *Adapter) flush() {
	if a.flusher != nil {
		a.flusher.Flush()
	}
}
