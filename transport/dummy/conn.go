package dummy

import (
	"io"
	"net"
	"time"
)

// Conn is a net.Conn reading nothing and discarding everything written.
type Conn struct{}

func (*Conn) Read([]byte) (int, error) {
	return 0, io.EOF
}

func (*Conn) Write(b []byte) (int, error) {
	return len(b), nil
}

func (*Conn) Close() error {
	return nil
}

func (*Conn) LocalAddr() net.Addr {
	return nil
}

func (*Conn) RemoteAddr() net.Addr {
	return nil
}

func (*Conn) SetDeadline(time.Time) error {
	return nil
}

func (*Conn) SetReadDeadline(time.Time) error {
	return nil
}

func (*Conn) SetWriteDeadline(time.Time) error {
	return nil
}
