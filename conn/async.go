package conn

import (
	"context"
	"time"

	"github.com/namjae/plug/async"
)

// AsyncAssign starts fn in the background and stores a handle to it under the key.
// The result is joined with AwaitAssign.
func (c Conn) AsyncAssign(key string, fn func(context.Context) (any, error)) Conn {
	return c.Assign(key, async.Go(c.ctx, fn))
}

// AwaitAssign waits up to the timeout for the computation started by AsyncAssign and
// replaces the handle with its result. Awaiting an already resolved key returns at once.
func (c Conn) AwaitAssign(key string, timeout time.Duration) (Conn, error) {
	value, found := c.assigns[key]
	if !found {
		return c, ErrNoAssign
	}

	awaiter, ok := value.(async.Awaiter)
	if !ok {
		return c, nil
	}

	result, err := awaiter.AwaitAny(timeout)
	if err != nil {
		return c, err
	}

	return c.Assign(key, result), nil
}
