package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultQueryLimit = 100

// MemoryStore is an in-memory audit store for tests and development.
type MemoryStore struct {
	mu      sync.RWMutex
	actions []*Action
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records an action.
func (s *MemoryStore) Append(ctx context.Context, action *Action) (*Action, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneAction(action)
	stored.ID = uuid.NewString()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	s.actions = append(s.actions, stored)

	return cloneAction(stored), nil
}

// Query returns actions matching the query, newest first.
func (s *MemoryStore) Query(ctx context.Context, q *Query) ([]*Action, error) {
	if q == nil {
		q = &Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*Action{}
	// Appends are chronological, so walk backwards for newest first.
	for i := len(s.actions) - 1; i >= 0; i-- {
		if q.matches(s.actions[i]) {
			matched = append(matched, s.actions[i])
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if q.Offset >= len(matched) {
		return []*Action{}, nil
	}
	matched = matched[q.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Action, len(matched))
	for i, a := range matched {
		out[i] = cloneAction(a)
	}
	return out, nil
}

// ForRecord returns all actions for one subject record, newest first.
func (s *MemoryStore) ForRecord(ctx context.Context, recordID string) ([]*Action, error) {
	return s.Query(ctx, &Query{SubjectRecordID: recordID})
}

// Count returns the number of actions matching the query.
func (s *MemoryStore) Count(ctx context.Context, q *Query) (int, error) {
	if q == nil {
		q = &Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.actions {
		if q.matches(a) {
			n++
		}
	}
	return n, nil
}

// Prune deletes actions older than the cutoff.
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.actions[:0]
	removed := 0
	for _, a := range s.actions {
		if a.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.actions = kept
	return removed, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

func cloneAction(a *Action) *Action {
	c := *a
	if a.Params != nil {
		c.Params = make(map[string]string, len(a.Params))
		for k, v := range a.Params {
			c.Params[k] = v
		}
	}
	return &c
}
