// Package async runs computations in the background and joins them with a bounded wait.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTimeout = errors.New("future did not resolve in time")
	ErrPanic   = errors.New("future panicked")
)

// Future is a handle to a computation running in its own goroutine.
type Future[T any] struct {
	value T
	err   error
	once  sync.Once
	done  chan struct{}
}

// Go starts fn in a new goroutine. A panic inside fn resolves the future with an error
// wrapping ErrPanic instead of crashing the process.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.resolve(*new(T), fmt.Errorf("%w: %v", ErrPanic, r))
			}
		}()

		select {
		case <-ctx.Done():
			f.resolve(*new(T), ctx.Err())
			return
		default:
		}

		value, err := fn(ctx)
		f.resolve(value, err)
	}()

	return f
}

// Resolved returns an already completed future.
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	f.resolve(value, err)
	close(f.done)
	return f
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value, f.err = value, err
	})
}

// Await blocks until the computation completes.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// AwaitTimeout blocks until the computation completes or the timeout expires, whichever
// happens first. The computation keeps running after a timeout.
func (f *Future[T]) AwaitTimeout(timeout time.Duration) (T, error) {
	if f.IsComplete() {
		return f.value, f.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		return *new(T), ErrTimeout
	}
}

// AwaitContext blocks until the computation completes or the context is done.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return *new(T), ctx.Err()
	}
}

// Done returns a channel closed once the computation completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports whether the computation completed, without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Awaiter is implemented by every Future regardless of its type parameter.
type Awaiter interface {
	AwaitAny(timeout time.Duration) (any, error)
	IsComplete() bool
}

// AwaitAny is AwaitTimeout with the value boxed into an interface.
func (f *Future[T]) AwaitAny(timeout time.Duration) (any, error) {
	value, err := f.AwaitTimeout(timeout)
	if err != nil {
		return nil, err
	}

	return value, nil
}
