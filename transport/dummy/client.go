// Package dummy contains in-memory transport clients for tests.
package dummy

import (
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/namjae/plug/transport"
)

var _ transport.Client = new(Client)

// Client returns the data it was initialised with piece by piece, and EOF after the
// last one unless looped. It also records everything written into it.
type Client struct {
	mu      sync.Mutex
	closed  bool
	loop    bool
	pointer int
	pending []byte
	written []byte
	data    [][]byte
	timeout time.Duration
}

func NewClient(data ...[]byte) *Client {
	return &Client{data: data}
}

// NewClientString splits the data into pieces of at most n bytes, simulating a stream
// arriving in parts.
func NewClientString(data string, n int) *Client {
	var pieces [][]byte
	for len(data) > 0 {
		size := min(n, len(data))
		pieces = append(pieces, []byte(data[:size]))
		data = data[size:]
	}

	return NewClient(pieces...)
}

func (c *Client) Read() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, io.EOF
	}

	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if c.pointer >= len(c.data) {
		if !c.loop || len(c.data) == 0 {
			return nil, io.EOF
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(b []byte) {
	if len(b) > 0 {
		c.mu.Lock()
		c.pending = b
		c.mu.Unlock()
	}
}

func (c *Client) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, net.ErrClosed
	}

	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *Client) SetReadTimeout(timeout time.Duration) {
	c.mu.Lock()
	c.timeout = timeout
	c.mu.Unlock()
}

// ReadTimeout returns the timeout set the last.
func (c *Client) ReadTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

func (c *Client) Conn() net.Conn {
	return new(Conn)
}

func (*Client) Remote() net.Addr {
	return net.TCPAddrFromAddrPort(netip.MustParseAddrPort("127.0.0.1:111"))
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Loop makes the client start over once the data is exhausted.
func (c *Client) Loop() *Client {
	c.loop = true
	return c
}

func (c *Client) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.written)
}

// Pending returns the data preserved by Pushback and not read yet.
func (c *Client) Pending() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
