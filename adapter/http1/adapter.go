// Package http1 serves connections over raw HTTP/1.x, straight on top of a transport
// client.
package http1

import (
	"os"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
	"github.com/namjae/plug/transport"
	"github.com/pkg/errors"
)

var _ conn.Informer = new(Adapter)

// Adapter writes responses of a single request into the client. It's stateful, so every
// call returns nil as the next adapter.
type Adapter struct {
	client    transport.Client
	ser       *serializer
	body      *body
	protocol  string
	method    string
	keepAlive bool
	// chunked is set once a chunked response head was written
	chunked bool
	// rawChunks is set for HTTP/1.0 clients, which don't support chunked encoding. The
	// chunks are written as is, and the connection is closed afterwards.
	rawChunks bool
	finished  bool
}

func newAdapter(client transport.Client, ser *serializer, h head) *Adapter {
	return &Adapter{
		client:    client,
		ser:       ser,
		body:      newBody(client, h),
		protocol:  h.protocol,
		method:    h.method,
		keepAlive: h.keepAlive,
	}
}

func (a *Adapter) SendResp(code status.Code, headers []kv.Pair, body []byte) ([]byte, conn.Adapter, error) {
	length := int64(len(body))
	if !status.AllowsBody(code) {
		length, body = -1, nil
	}

	buff := a.ser.head(a.protocol, code, headers, length, false, a.keepAlive)
	if !isHead(a.method) {
		buff = append(buff, body...)
	}

	a.ser.buff = buff
	a.finished = true
	return nil, nil, a.write(buff)
}

func (a *Adapter) SendFile(
	code status.Code, headers []kv.Pair, path string, offset, length int64,
) ([]byte, conn.Adapter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open file")
	}

	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, nil, errors.Wrap(err, "stat file")
	}

	if offset > stat.Size() {
		offset = stat.Size()
	}

	if length < 0 || offset+length > stat.Size() {
		length = stat.Size() - offset
	}

	if _, err = file.Seek(offset, 0); err != nil {
		return nil, nil, errors.Wrap(err, "seek file")
	}

	a.finished = true
	if err = a.write(a.ser.head(a.protocol, code, headers, length, false, a.keepAlive)); err != nil {
		return nil, nil, err
	}

	if isHead(a.method) {
		return nil, nil, nil
	}

	if err = a.ser.copyN(a.client, file, length); err != nil {
		a.keepAlive = false
		return nil, nil, errors.Wrap(err, "send file")
	}

	return nil, nil, nil
}

func (a *Adapter) SendChunked(code status.Code, headers []kv.Pair) ([]byte, conn.Adapter, error) {
	if a.protocol == HTTP10 {
		a.rawChunks, a.keepAlive = true, false
	}

	a.chunked = true
	head := a.ser.head(a.protocol, code, headers, -1, !a.rawChunks, a.keepAlive)
	return nil, nil, a.write(head)
}

func (a *Adapter) Chunk(data []byte) ([]byte, conn.Adapter, error) {
	if isHead(a.method) {
		return nil, nil, nil
	}

	if a.rawChunks {
		return nil, nil, a.write(data)
	}

	return nil, nil, a.write(a.ser.chunk(data))
}

func (a *Adapter) ReadReqBody(opts conn.BodyOptions) (conn.BodyChunk, conn.Adapter, error) {
	a.client.SetReadTimeout(opts.ReadTimeout)
	data, more, err := a.body.read(opts.Length, opts.ReadLength)
	if err != nil {
		// the rest of the body can't be skipped, so neither can the next request be read
		a.keepAlive = false
		return conn.BodyChunk{}, nil, errors.Wrap(err, "read body")
	}

	return conn.BodyChunk{Data: data, More: more}, nil, nil
}

// Inform sends an informational response. HTTP/1.0 clients don't know about them, so
// nothing is sent to them.
func (a *Adapter) Inform(code status.Code, headers []kv.Pair) (conn.Adapter, error) {
	if a.protocol == HTTP10 {
		return nil, nil
	}

	return nil, a.write(a.ser.inform(code, headers))
}

// Finish terminates the chunked response, if any. It must be called once the
// connection is done.
func (a *Adapter) Finish() error {
	if !a.chunked || a.finished {
		return nil
	}

	a.finished = true
	if a.rawChunks || isHead(a.method) {
		return nil
	}

	return a.write(chunkedFinalizer)
}

// KeepAlive reports whether the client may send further requests over the connection.
func (a *Adapter) KeepAlive() bool {
	return a.keepAlive
}

func (a *Adapter) write(b []byte) error {
	if _, err := a.client.Write(b); err != nil {
		a.keepAlive = false
		return errors.Wrap(err, "write response")
	}

	return nil
}
