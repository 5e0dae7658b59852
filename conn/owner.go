package conn

import (
	"sync"
	"sync/atomic"
)

// Owner is notified once a response reaches the transport. Transports use the notification
// to detect whether something was sent outside the regular flow.
type Owner interface {
	AlreadySent()
}

type nopOwner struct{}

func (nopOwner) AlreadySent() {}

// Signal is an Owner backed by a channel, closed on the first notification.
type Signal struct {
	done  chan struct{}
	once  sync.Once
	count atomic.Int64
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

func (s *Signal) AlreadySent() {
	s.count.Add(1)
	s.once.Do(func() {
		close(s.done)
	})
}

// Done returns a channel closed after the first notification.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Sent reports whether a notification was delivered.
func (s *Signal) Sent() bool {
	return s.count.Load() > 0
}

// Count returns how many notifications were delivered.
func (s *Signal) Count() int {
	return int(s.count.Load())
}

// OwnerFunc adapts a plain function to the Owner interface.
type OwnerFunc func()

func (o OwnerFunc) AlreadySent() {
	o()
}

type owners []Owner

func (o owners) AlreadySent() {
	for _, owner := range o {
		owner.AlreadySent()
	}
}

// AddOwner returns the connection notifying the owner in addition to the current ones.
func (c Conn) AddOwner(owner Owner) Conn {
	if c.owner == nil {
		c.owner = owner
		return c
	}

	c.owner = owners{c.owner, owner}
	return c
}
