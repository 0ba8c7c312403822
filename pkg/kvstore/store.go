package kvstore

import (
	"bytes"
	"sync"
)

// Store is an in-memory map from string keys to byte values.
//
// Every operation holds a single store-wide lock for its whole duration, so
// single-key and batch operations are linearizable with respect to each
// other: a MultiPut becomes visible all at once and a MultiGet reads one
// consistent snapshot. Values are copied on the way in and on the way out;
// callers may reuse or mutate their slices freely.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key string, value []byte) {
	v := clone(value)

	s.mu.Lock()
	s.entries[key] = v
	s.mu.Unlock()
}

// Get returns the value stored under key. The boolean is false when the key
// has never been written; a stored zero-length value returns an empty,
// non-nil slice and true.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return clone(v), true
}

// MultiPut writes every pair as one atomic step. An empty batch is a no-op.
func (s *Store) MultiPut(pairs map[string][]byte) {
	if len(pairs) == 0 {
		return
	}

	// Copy outside the lock to keep the critical section short.
	staged := make(map[string][]byte, len(pairs))
	for k, v := range pairs {
		staged[k] = clone(v)
	}

	s.mu.Lock()
	for k, v := range staged {
		s.entries[k] = v
	}
	s.mu.Unlock()
}

// MultiGet returns the current values of keys taken from a single snapshot.
// Keys that do not exist are left out of the result. The result is never nil.
func (s *Store) MultiGet(keys []string) map[string][]byte {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result
	}

	s.mu.RLock()
	for _, k := range keys {
		if v, ok := s.entries[k]; ok {
			result[k] = v
		}
	}
	s.mu.RUnlock()

	// Stored slices are never mutated in place, so copying after the unlock
	// still reflects the snapshot.
	for k, v := range result {
		result[k] = clone(v)
	}
	return result
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func clone(v []byte) []byte {
	if v == nil {
		return []byte{}
	}
	return bytes.Clone(v)
}
