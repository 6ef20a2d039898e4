package policy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation. It is the default for
// tests and single-process deployments without persistence.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*Policy // by ID
	byName   map[string]string  // name -> ID
	stats    map[string]*Stats  // policyID + "\x00" + user
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]*Policy),
		byName:   make(map[string]string),
		stats:    make(map[string]*Stats),
	}
}

func statsKey(policyID, user string) string { return policyID + "\x00" + user }

// Save creates or updates a policy after validation.
func (s *MemoryStore) Save(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = time.Now().UTC()
	}
	if existingID, ok := s.byName[p.Name]; ok && existingID != p.ID {
		return &DuplicateNameError{Name: p.Name}
	}

	// Drop a stale name index entry when the policy was renamed.
	if old, ok := s.policies[p.ID]; ok && old.Name != p.Name {
		delete(s.byName, old.Name)
	}

	p.UpdatedAt = time.Now().UTC()
	s.policies[p.ID] = p.Clone()
	s.byName[p.Name] = p.ID
	return nil
}

// Get returns a policy by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// GetByName returns a policy by name.
func (s *MemoryStore) GetByName(ctx context.Context, name string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return s.policies[id].Clone(), nil
}

// List returns all policies in evaluation order.
func (s *MemoryStore) List(ctx context.Context) ([]*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(*Policy) bool { return true }), nil
}

// ListEnabled returns enabled policies in evaluation order.
func (s *MemoryStore) ListEnabled(ctx context.Context) ([]*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(func(p *Policy) bool { return p.Enabled }), nil
}

func (s *MemoryStore) listLocked(keep func(*Policy) bool) []*Policy {
	out := make([]*Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SetEnabled flips the enabled flag.
func (s *MemoryStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return ErrNotFound
	}
	p.Enabled = enabled
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetPriority changes the priority.
func (s *MemoryStore) SetPriority(ctx context.Context, id string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return ErrNotFound
	}
	p.Priority = priority
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a policy and its stats rows.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byName, p.Name)
	delete(s.policies, id)
	for key := range s.stats {
		if len(key) > len(id) && key[:len(id)] == id && key[len(id)] == '\x00' {
			delete(s.stats, key)
		}
	}
	return nil
}

// RecordFired increments the fired counter.
func (s *MemoryStore) RecordFired(ctx context.Context, policyID, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.statsLocked(policyID, user)
	st.Fired++
	st.recompute()
	return nil
}

// RecordReview increments an outcome counter.
func (s *MemoryStore) RecordReview(ctx context.Context, policyID, user string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.statsLocked(policyID, user)
	if approved {
		st.Approved++
	} else {
		st.Rejected++
	}
	st.recompute()
	return nil
}

// GetStats returns the tally for (policy, user).
func (s *MemoryStore) GetStats(ctx context.Context, policyID, user string) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.stats[statsKey(policyID, user)]; ok {
		clone := *st
		return &clone, nil
	}
	return &Stats{PolicyID: policyID, User: user}, nil
}

func (s *MemoryStore) statsLocked(policyID, user string) *Stats {
	key := statsKey(policyID, user)
	st, ok := s.stats[key]
	if !ok {
		st = &Stats{PolicyID: policyID, User: user}
		s.stats[key] = st
	}
	return st
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
