// Package dummy provides an in-memory adapter recording everything sent through it,
// together with helpers building connections for tests.
package dummy

import (
	"io"
	"os"
	"slices"
	"sync"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
)

var (
	_ conn.Adapter  = Adapter{}
	_ conn.Informer = Adapter{}
	_ conn.Upgrader = Adapter{}
)

// Response is a response as the adapter received it.
type Response struct {
	Kind    string
	Status  status.Code
	Headers []kv.Pair
	Body    []byte
	// File fields are set for file responses only.
	Path           string
	Offset, Length int64
}

type Inform struct {
	Status  status.Code
	Headers []kv.Pair
}

type Upgrade struct {
	Protocol string
	Args     any
}

// Recorder collects everything passed to adapters sharing it.
type Recorder struct {
	mu        sync.Mutex
	responses []Response
	chunks    [][]byte
	informs   []Inform
	upgrades  []Upgrade
	failures  map[string]error
	bodyReads int
}

func NewRecorder() *Recorder {
	return &Recorder{failures: map[string]error{}}
}

// FailOn makes the operation fail with the error. Operations are named after the adapter
// methods: send_resp, send_file, send_chunked, chunk, read_req_body, inform, upgrade.
func (r *Recorder) FailOn(op string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
	return r
}

func (r *Recorder) Responses() []Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.responses)
}

// Response returns the last received response.
func (r *Recorder) Response() (Response, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return Response{}, false
	}

	return r.responses[len(r.responses)-1], true
}

func (r *Recorder) Chunks() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.chunks)
}

func (r *Recorder) Informs() []Inform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.informs)
}

func (r *Recorder) Upgrades() []Upgrade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.upgrades)
}

// BodyReads returns how many times the request body was read.
func (r *Recorder) BodyReads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodyReads
}

func (r *Recorder) failure(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[op]
}

func (r *Recorder) record(fn func(r *Recorder)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// Adapter is an immutable adapter value. Every operation returns a new value carrying
// the rest of the request body and the chunks sent so far.
type Adapter struct {
	rec     *Recorder
	reqBody []byte
	chunked []byte
}

func New(rec *Recorder, reqBody []byte) Adapter {
	return Adapter{rec: rec, reqBody: reqBody}
}

func (a Adapter) SendResp(code status.Code, headers []kv.Pair, body []byte) ([]byte, conn.Adapter, error) {
	if err := a.rec.failure("send_resp"); err != nil {
		return nil, nil, err
	}

	body = slices.Clone(body)
	a.rec.record(func(r *Recorder) {
		r.responses = append(r.responses, Response{
			Kind:    "send_resp",
			Status:  code,
			Headers: slices.Clone(headers),
			Body:    body,
		})
	})

	return body, a, nil
}

// SendFile reads the file contents into the body, as if it was sent over the wire.
func (a Adapter) SendFile(
	code status.Code, headers []kv.Pair, path string, offset, length int64,
) ([]byte, conn.Adapter, error) {
	if err := a.rec.failure("send_file"); err != nil {
		return nil, nil, err
	}

	body, err := readFile(path, offset, length)
	if err != nil {
		return nil, nil, err
	}

	a.rec.record(func(r *Recorder) {
		r.responses = append(r.responses, Response{
			Kind:    "send_file",
			Status:  code,
			Headers: slices.Clone(headers),
			Body:    body,
			Path:    path,
			Offset:  offset,
			Length:  length,
		})
	})

	return body, a, nil
}

func (a Adapter) SendChunked(code status.Code, headers []kv.Pair) ([]byte, conn.Adapter, error) {
	if err := a.rec.failure("send_chunked"); err != nil {
		return nil, nil, err
	}

	a.rec.record(func(r *Recorder) {
		r.responses = append(r.responses, Response{
			Kind:    "send_chunked",
			Status:  code,
			Headers: slices.Clone(headers),
		})
	})

	a.chunked = []byte{}
	return a.chunked, a, nil
}

// Chunk returns all the chunks sent so far as the body.
func (a Adapter) Chunk(data []byte) ([]byte, conn.Adapter, error) {
	if err := a.rec.failure("chunk"); err != nil {
		return nil, nil, err
	}

	a.rec.record(func(r *Recorder) {
		r.chunks = append(r.chunks, slices.Clone(data))
	})

	a.chunked = append(slices.Clip(a.chunked), data...)
	return a.chunked, a, nil
}

func (a Adapter) ReadReqBody(opts conn.BodyOptions) (conn.BodyChunk, conn.Adapter, error) {
	if err := a.rec.failure("read_req_body"); err != nil {
		return conn.BodyChunk{}, nil, err
	}

	a.rec.record(func(r *Recorder) {
		r.bodyReads++
	})

	n := min(len(a.reqBody), max(opts.Length, 0))
	chunk := conn.BodyChunk{
		Data: a.reqBody[:n],
		More: n < len(a.reqBody),
	}
	a.reqBody = a.reqBody[n:]

	return chunk, a, nil
}

func (a Adapter) Inform(code status.Code, headers []kv.Pair) (conn.Adapter, error) {
	if err := a.rec.failure("inform"); err != nil {
		return nil, err
	}

	a.rec.record(func(r *Recorder) {
		r.informs = append(r.informs, Inform{Status: code, Headers: slices.Clone(headers)})
	})

	return a, nil
}

func (a Adapter) Upgrade(protocol string, args any) (conn.Adapter, error) {
	if err := a.rec.failure("upgrade"); err != nil {
		return nil, err
	}

	a.rec.record(func(r *Recorder) {
		r.upgrades = append(r.upgrades, Upgrade{Protocol: protocol, Args: args})
	})

	return a, nil
}

func readFile(path string, offset, length int64) ([]byte, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = fd.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	if length < 0 {
		return io.ReadAll(fd)
	}

	body := make([]byte, length)
	n, err := io.ReadFull(fd, body)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}

	return body[:n], err
}
