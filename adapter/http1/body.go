package http1

import (
	"io"

	"github.com/indigo-web/chunkedbody"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/transport"
)

// body reads the request body off the client, either plain or chunked. Decoded data
// exceeding a single read is kept until the next one.
type body struct {
	client    transport.Client
	parser    *chunkedbody.Parser
	chunked   bool
	trailer   bool
	bytesLeft int64
	leftover  []byte
	eof       bool
}

func newBody(client transport.Client, h head) *body {
	b := &body{
		client:    client,
		chunked:   h.chunked,
		trailer:   h.trailer,
		bytesLeft: h.contentLength,
	}

	if b.chunked {
		b.parser = chunkedbody.NewParser(chunkedbody.DefaultSettings())
	} else {
		b.eof = b.bytesLeft == 0
	}

	return b
}

// read returns at most length bytes of the body and whether there's more of it.
func (b *body) read(length, readLength int) ([]byte, bool, error) {
	if length <= 0 {
		return nil, !b.eof, nil
	}

	out := make([]byte, 0, min(length, max(readLength, 0)))
	for !b.eof && len(out) < length {
		piece, err := b.next()
		if room := length - len(out); len(piece) > room {
			b.leftover = append(b.leftover[:0], piece[room:]...)
			piece = piece[:room]
		}

		out = append(out, piece...)

		switch err {
		case nil:
		case io.EOF:
			b.eof = len(b.leftover) == 0
		default:
			return out, false, err
		}
	}

	return out, !b.eof, nil
}

// next returns the following piece of the body. io.EOF comes together with the last one.
func (b *body) next() ([]byte, error) {
	if len(b.leftover) > 0 {
		piece := b.leftover
		b.leftover = nil
		if b.done() {
			return piece, io.EOF
		}

		return piece, nil
	}

	if b.done() {
		return nil, io.EOF
	}

	if b.chunked {
		return b.nextChunk()
	}

	return b.nextPlain()
}

func (b *body) nextPlain() ([]byte, error) {
	data, err := b.client.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	if int64(len(data)) >= b.bytesLeft {
		b.client.Pushback(data[b.bytesLeft:])
		data = data[:b.bytesLeft]
		b.bytesLeft = 0
		return data, io.EOF
	}

	b.bytesLeft -= int64(len(data))
	return data, nil
}

func (b *body) nextChunk() ([]byte, error) {
	data, err := b.client.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, err
	}

	chunk, extra, err := b.parser.Parse(data, b.trailer)
	b.client.Pushback(extra)

	switch err {
	case nil:
		return chunk, nil
	case io.EOF:
		b.parser = nil
		return chunk, io.EOF
	default:
		return nil, status.ErrBadChunk
	}
}

// done reports whether the body was entirely read off the wire.
func (b *body) done() bool {
	if b.chunked {
		return b.parser == nil
	}

	return b.bytesLeft == 0
}

// discard reads off the rest of the body, so the next request may be read.
func (b *body) discard() error {
	b.leftover = nil
	for !b.done() {
		if _, err := b.next(); err != nil && err != io.EOF {
			return err
		}
	}

	b.eof = true
	return nil
}
