package settings

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory settings store for tests and
// development.
type MemoryStore struct {
	mu      sync.Mutex
	current *Settings
	now     func() time.Time
}

// NewMemoryStore creates a memory store. The default row is created
// lazily on first read.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the current settings, creating defaults on first read.
func (s *MemoryStore) Get(ctx context.Context) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.current = Defaults()
		s.current.UpdatedAt = s.now()
	}
	return s.current.Clone(), nil
}

// Update applies fn under the store lock.
func (s *MemoryStore) Update(ctx context.Context, updatedBy, reason string, fn func(*Settings) error) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.current = Defaults()
		s.current.UpdatedAt = s.now()
	}

	next := s.current.Clone()
	if err := fn(next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateAborted, err)
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateAborted, err)
	}

	next.UpdatedBy = updatedBy
	next.UpdateReason = reason
	next.UpdatedAt = s.now()
	s.current = next

	return next.Clone(), nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
