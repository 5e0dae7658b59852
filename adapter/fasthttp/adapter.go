// Package fasthttp runs connections on top of valyala/fasthttp.
//
// fasthttp sends the response once the handler returns, so chunks are buffered and
// leave together. Informational responses and upgrades aren't supported.
package fasthttp

import (
	"io"
	"os"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

type Adapter struct {
	ctx *fasthttp.RequestCtx
	// offset of the body data not read yet
	offset int
}

func newAdapter(ctx *fasthttp.RequestCtx) *Adapter {
	return &Adapter{ctx: ctx}
}

func (a *Adapter) SendResp(code status.Code, headers []kv.Pair, body []byte) ([]byte, conn.Adapter, error) {
	a.writeHead(code, headers)
	if status.AllowsBody(code) {
		a.ctx.Response.SetBody(body)
	}

	return nil, nil, nil
}

func (a *Adapter) SendFile(
	code status.Code, headers []kv.Pair, path string, offset, length int64,
) ([]byte, conn.Adapter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open file")
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, errors.Wrap(err, "stat file")
	}

	offset = min(offset, stat.Size())
	if length < 0 || offset+length > stat.Size() {
		length = stat.Size() - offset
	}

	if _, err = file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, nil, errors.Wrap(err, "seek file")
	}

	a.writeHead(code, headers)
	// fasthttp closes the stream once it's sent
	a.ctx.Response.SetBodyStream(fileSection{Reader: io.LimitReader(file, length), Closer: file}, int(length))
	return nil, nil, nil
}

func (a *Adapter) SendChunked(code status.Code, headers []kv.Pair) ([]byte, conn.Adapter, error) {
	a.writeHead(code, headers)
	a.ctx.Response.ResetBody()
	return nil, nil, nil
}

func (a *Adapter) Chunk(data []byte) ([]byte, conn.Adapter, error) {
	a.ctx.Response.AppendBody(data)
	return nil, nil, nil
}

// ReadReqBody hands out the body fasthttp has already read, by opts.Length bytes at most.
func (a *Adapter) ReadReqBody(opts conn.BodyOptions) (conn.BodyChunk, conn.Adapter, error) {
	body := a.ctx.PostBody()[a.offset:]
	n := min(len(body), max(opts.Length, 0))
	a.offset += n

	data := make([]byte, n)
	copy(data, body)
	return conn.BodyChunk{Data: data, More: n < len(body)}, nil, nil
}

func (a *Adapter) writeHead(code status.Code, headers []kv.Pair) {
	a.ctx.SetStatusCode(int(code))
	for _, pair := range headers {
		a.ctx.Response.Header.Add(pair.Key, pair.Value)
	}
}

type fileSection struct {
	io.Reader
	io.Closer
}
