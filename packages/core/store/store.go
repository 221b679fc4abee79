// Package store holds the values a suite threads between its steps.
//
// A Store is created empty when a suite starts, filled by captures as steps
// complete, and cleared when the suite ends. It is never shared across
// suites and is only touched by the runner goroutine, so it does no locking.
package store

import (
	"fmt"
	"sort"
)

// UnresolvedReferenceError is returned when a key is read before any step wrote it.
type UnresolvedReferenceError struct {
	Key string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference: %q has not been set by an earlier step", e.Key)
}

type Store struct {
	values map[string]any
}

func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Set writes or overwrites a value.
func (s *Store) Set(key string, value any) {
	s.values[key] = value
}

// SetAll writes every entry of values.
func (s *Store) SetAll(values map[string]any) {
	for k, v := range values {
		s.values[k] = v
	}
}

func (s *Store) Get(key string) (any, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, &UnresolvedReferenceError{Key: key}
	}
	return v, nil
}

func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current contents.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) Len() int {
	return len(s.values)
}

// Clear drops every value. The runner calls it on suite teardown.
func (s *Store) Clear() {
	clear(s.values)
}
