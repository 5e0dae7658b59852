package conn

import "fmt"

// Aspect names a lazily computed part of the request.
type Aspect string

const (
	AspectCookies     Aspect = "cookies"
	AspectReqCookies  Aspect = "req_cookies"
	AspectQueryParams Aspect = "query_params"
	AspectParams      Aspect = "params"
)

// UnfetchedError is returned when reading an aspect which wasn't fetched yet.
type UnfetchedError struct {
	Aspect Aspect
}

func (u UnfetchedError) Error() string {
	return fmt.Sprintf("%s were not fetched", u.Aspect)
}

// Fetchable holds either an unfetched marker tagged with its aspect or a fetched value.
// A fetched zero value is distinguishable from an unfetched one.
type Fetchable[T any] struct {
	aspect  Aspect
	value   T
	fetched bool
}

func Unfetched[T any](aspect Aspect) Fetchable[T] {
	return Fetchable[T]{aspect: aspect}
}

func Fetched[T any](aspect Aspect, value T) Fetchable[T] {
	return Fetchable[T]{aspect: aspect, value: value, fetched: true}
}

func (f Fetchable[T]) Fetched() bool {
	return f.fetched
}

func (f Fetchable[T]) Aspect() Aspect {
	return f.aspect
}

// Get returns the value or UnfetchedError.
func (f Fetchable[T]) Get() (T, error) {
	if !f.fetched {
		return f.value, UnfetchedError{Aspect: f.aspect}
	}

	return f.value, nil
}
