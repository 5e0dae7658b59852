package http1

import (
	"io"
	"strconv"

	"github.com/indigo-web/utils/strcomp"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
)

const (
	crlf    = "\r\n"
	colonsp = ": "
)

// minimalFileBuffSize defines the minimal size of the file buffer.
const minimalFileBuffSize = 16

var chunkedFinalizer = []byte("0\r\n\r\n")

// serializer renders responses into a reusable buffer.
type serializer struct {
	buff []byte
	// fileBuff isn't allocated until needed in order to save memory in cases,
	// where no files are being sent
	fileBuff     []byte
	fileBuffSize int
}

func newSerializer(buff []byte, fileBuffSize int) *serializer {
	return &serializer{
		buff:         buff[:0],
		fileBuffSize: max(fileBuffSize, minimalFileBuffSize),
	}
}

// head renders the status line and the headers. The length is rendered as Content-Length
// when it's not negative; chunked sets Transfer-Encoding instead.
func (s *serializer) head(
	protocol string, code status.Code, headers []kv.Pair, length int64, chunked, keepAlive bool,
) []byte {
	s.buff = append(s.buff[:0], protocol...)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, status.StringCode(code)...)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, status.Text(code)...)
	s.crlf()

	for _, header := range headers {
		if isFraming(header.Key) {
			continue
		}

		s.renderHeader(header.Key, header.Value)
	}

	switch {
	case chunked:
		s.renderHeader("transfer-encoding", "chunked")
	case length >= 0:
		s.buff = strconv.AppendInt(append(s.buff, "content-length: "...), length, 10)
		s.crlf()
	}

	if !keepAlive {
		s.renderHeader("connection", "close")
	}

	s.crlf()
	return s.buff
}

// inform renders an informational response. It carries neither body nor framing headers.
func (s *serializer) inform(code status.Code, headers []kv.Pair) []byte {
	s.buff = append(s.buff[:0], HTTP11...)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, status.StringCode(code)...)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, status.Text(code)...)
	s.crlf()

	for _, header := range headers {
		s.renderHeader(header.Key, header.Value)
	}

	s.crlf()
	return s.buff
}

// chunk frames the data as a single chunk.
func (s *serializer) chunk(data []byte) []byte {
	s.buff = strconv.AppendUint(s.buff[:0], uint64(len(data)), 16)
	s.crlf()
	s.buff = append(s.buff, data...)
	s.crlf()
	return s.buff
}

// copyN streams exactly n bytes from the reader into the writer.
func (s *serializer) copyN(w io.Writer, r io.Reader, n int64) error {
	if len(s.fileBuff) == 0 {
		s.fileBuff = make([]byte, s.fileBuffSize)
	}

	for n > 0 {
		size := int64(len(s.fileBuff))
		if n < size {
			size = n
		}

		read, err := io.ReadFull(r, s.fileBuff[:size])
		if read > 0 {
			if _, werr := w.Write(s.fileBuff[:read]); werr != nil {
				return werr
			}

			n -= int64(read)
		}

		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return io.ErrUnexpectedEOF
			}

			return err
		}
	}

	return nil
}

func (s *serializer) renderHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, colonsp...)
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

// isFraming reports whether the header is the one the serializer is in charge of.
func isFraming(key string) bool {
	return strcomp.EqualFold(key, "content-length") || strcomp.EqualFold(key, "transfer-encoding")
}
