package kv

import (
	"iter"
	"slices"
)

type Pair struct {
	Key, Value string
}

// Storage is an ordered collection of (string, string) pairs. It acts as a map but
// uses linear search instead, which proves to be more efficient on relatively low amount of
// entries, which often enough is the case for headers.
//
// Keys are compared exactly. Header keys are expected to be lower-cased by whoever
// produces them; Storage never normalizes them.
type Storage struct {
	pairs []Pair
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns an instance of Storage with pre-allocated underlying storage.
func NewPrealloc(n int) *Storage {
	return &Storage{
		pairs: make([]Pair, 0, n),
	}
}

// NewFromPairs returns a new instance holding a copy of the passed pairs, in the same order.
func NewFromPairs(pairs ...Pair) *Storage {
	return &Storage{pairs: slices.Clone(pairs)}
}

// Add appends a new pair of key and value, even if the key is already presented.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{
		Key:   key,
		Value: value,
	})
	return s
}

// Set replaces the value of the first pair with the key in place. If there is no such
// key, the pair is appended. Other pairs with the same key are left untouched.
func (s *Storage) Set(key, value string) *Storage {
	for i, pair := range s.pairs {
		if pair.Key == key {
			s.pairs[i].Value = value
			return s
		}
	}

	return s.Add(key, value)
}

// Prepend inserts the pairs in front of the existing ones, preserving their order.
func (s *Storage) Prepend(pairs ...Pair) *Storage {
	s.pairs = append(slices.Clone(pairs), s.pairs...)
	return s
}

// Delete removes every pair with the key.
func (s *Storage) Delete(key string) *Storage {
	s.pairs = slices.DeleteFunc(s.pairs, func(pair Pair) bool {
		return pair.Key == key
	})
	return s
}

// Value returns the first value, corresponding to the key. Otherwise, empty string is returned
func (s *Storage) Value(key string) string {
	value, _ := s.Get(key)
	return value
}

// Get returns a value and a bool, indicating whether the value was found. If it wasn't, it'll
// be an empty string.
func (s *Storage) Get(key string) (value string, found bool) {
	if s == nil {
		return "", false
	}

	for _, pair := range s.pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}

	return "", false
}

// Values returns all values by the key in their original order. Returns nil if key doesn't exist.
func (s *Storage) Values(key string) (values []string) {
	if s == nil {
		return nil
	}

	for _, pair := range s.pairs {
		if pair.Key == key {
			values = append(values, pair.Value)
		}
	}

	return values
}

// Iter returns an iterator over the pairs.
func (s *Storage) Iter() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if s == nil {
			return
		}

		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				break
			}
		}
	}
}

// Has indicates, whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	_, found := s.Get(key)
	return found
}

// Len returns a number of stored pairs.
func (s *Storage) Len() int {
	if s == nil {
		return 0
	}

	return len(s.pairs)
}

// Clone creates a deep copy, which may be mutated without affecting the original. Cloning
// a nil Storage results in an empty one.
func (s *Storage) Clone() *Storage {
	if s == nil {
		return New()
	}

	return &Storage{pairs: slices.Clone(s.pairs)}
}

// Expose exposes the underlying pairs slice. It must not be modified.
func (s *Storage) Expose() []Pair {
	if s == nil {
		return nil
	}

	return s.pairs
}
