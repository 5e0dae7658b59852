package transport

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// TCP accepts connections and serves each one in its own goroutine. The accept loop is
// interrupted every once in a while to check whether it was stopped.
type TCP struct {
	l         listener
	wg        *sync.WaitGroup
	stop      *atomic.Bool
	interrupt time.Duration
}

func NewTCP(interrupt time.Duration) *TCP {
	tcp := newTCP(nil, interrupt)
	return &tcp
}

func newTCP(l listener, interrupt time.Duration) TCP {
	if interrupt <= 0 {
		interrupt = time.Second
	}

	return TCP{
		l:         l,
		wg:        new(sync.WaitGroup),
		stop:      new(atomic.Bool),
		interrupt: interrupt,
	}
}

func bindTCP(addr string) (*net.TCPListener, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = bindTCP(addr)
	return err
}

// Addr returns the address the transport is bound to.
func (t *TCP) Addr() net.Addr {
	return t.l.Addr()
}

// Listen blocks until Stop is called or accepting fails. The connection is closed after
// the callback returns.
func (t *TCP) Listen(cb func(conn net.Conn)) error {
	for !t.stop.Load() {
		err := t.l.SetDeadline(time.Now().Add(t.interrupt))
		if err != nil {
			return err
		}

		conn, err := t.l.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			return err
		}

		t.wg.Add(1)
		go func(conn net.Conn) {
			defer t.wg.Done()
			cb(conn)
			_ = conn.Close()
		}(conn)
	}

	return nil
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

func (t *TCP) Close() error {
	return t.l.Close()
}

// Wait blocks until every served connection is done.
func (t *TCP) Wait() {
	t.wg.Wait()
}
