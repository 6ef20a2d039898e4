package proposal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultListLimit = 100

// MemoryStore is an in-memory proposal store for tests and
// development.
type MemoryStore struct {
	mu        sync.RWMutex
	proposals map[string]*ProposedAction
	order     []string // creation order, for stable listing
}

// NewMemoryStore creates an empty in-memory proposal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{proposals: map[string]*ProposedAction{}}
}

// Create persists a new proposal.
func (s *MemoryStore) Create(ctx context.Context, p *ProposedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := p.Clone()
	stored.ID = uuid.NewString()
	stored.Status = StatusPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.proposals[stored.ID] = stored
	s.order = append(s.order, stored.ID)

	p.ID = stored.ID
	p.Status = stored.Status
	p.CreatedAt = stored.CreatedAt
	return nil
}

// Get returns a proposal by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ProposedAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// List returns proposals matching the filter, newest first.
func (s *MemoryStore) List(ctx context.Context, f *Filter) ([]*ProposedAction, error) {
	if f == nil {
		f = &Filter{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*ProposedAction{}
	for _, id := range s.order {
		p := s.proposals[id]
		if f.User != "" && p.User != f.User {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.PolicyID != "" && p.PolicyID != f.PolicyID {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*ProposedAction, len(matched))
	for i, p := range matched {
		out[i] = p.Clone()
	}
	return out, nil
}

// Transition moves a proposal between statuses with a check-then-set
// under the store lock.
func (s *MemoryStore) Transition(ctx context.Context, id string, from, to Status, reviewer string, reviewedAt time.Time) (*ProposedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != from || !from.CanTransitionTo(to) {
		return nil, &TransitionError{ID: id, From: from, To: to, Current: p.Status}
	}

	p.Status = to
	if from == StatusPending {
		p.Reviewer = reviewer
		p.ReviewedAt = reviewedAt
	}
	return p.Clone(), nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
