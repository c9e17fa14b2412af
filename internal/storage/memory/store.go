package memory

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memory store closed")

// Store is a concurrency-safe map-backed key-value store.
type Store struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool

	// Failure injection, guarded by mu.
	failGet    error
	failSet    error
	failRemove error
}

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, ErrClosed
	}
	if s.failGet != nil {
		return "", false, s.failGet
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.failSet != nil {
		return s.failSet
	}
	s.data[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.failRemove != nil {
		return s.failRemove
	}
	delete(s.data, key)
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// FailGet makes subsequent Get calls return err (nil clears it).
func (s *Store) FailGet(err error) {
	s.mu.Lock()
	s.failGet = err
	s.mu.Unlock()
}

// FailSet makes subsequent Set calls return err (nil clears it).
func (s *Store) FailSet(err error) {
	s.mu.Lock()
	s.failSet = err
	s.mu.Unlock()
}

// FailRemove makes subsequent Remove calls return err (nil clears it).
func (s *Store) FailRemove(err error) {
	s.mu.Lock()
	s.failRemove = err
	s.mu.Unlock()
}
