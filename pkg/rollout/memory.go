package rollout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory bundle store for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	bundles map[string]*Bundle
}

// NewMemoryStore creates an empty in-memory bundle store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: map[string]*Bundle{}}
}

// Create persists a new draft bundle.
func (s *MemoryStore) Create(ctx context.Context, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bundles {
		if existing.Version == b.Version {
			return stateErr(KindDuplicateVersion, b.Version, "version already exists")
		}
	}

	stored := b.Clone()
	stored.ID = uuid.NewString()
	stored.Active = false
	stored.CanaryPct = 0
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.bundles[stored.ID] = stored

	b.ID = stored.ID
	b.Active = false
	b.CanaryPct = 0
	b.CreatedAt = stored.CreatedAt
	return nil
}

// Get returns a bundle by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bundles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b.Clone(), nil
}

// GetByVersion returns a bundle by version.
func (s *MemoryStore) GetByVersion(ctx context.Context, version string) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bundles {
		if b.Version == version {
			return b.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// List returns all bundles, newest created first.
func (s *MemoryStore) List(ctx context.Context) ([]*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Bundle, 0, len(s.bundles))
	for _, b := range s.bundles {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

// GetActive returns the active bundle, or nil.
func (s *MemoryStore) GetActive(ctx context.Context) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bundles {
		if b.Active {
			return b.Clone(), nil
		}
	}
	return nil, nil
}

// Activate atomically swaps the active flag to id.
func (s *MemoryStore) Activate(ctx context.Context, id string, pct float64, actor, approvalID string, at time.Time) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.bundles[id]
	if !ok {
		return nil, ErrNotFound
	}

	for _, b := range s.bundles {
		if b.Active && b.ID != id {
			b.Active = false
			b.CanaryPct = 0
		}
	}

	target.Active = true
	target.CanaryPct = pct
	target.ActivatedAt = at
	target.ActivatedBy = actor
	target.ApprovalID = approvalID
	return target.Clone(), nil
}

// Promote sets the canary percentage of an active bundle.
func (s *MemoryStore) Promote(ctx context.Context, id string, pct float64) (*Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bundles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !b.Active {
		return nil, stateErr(KindBundleInactive, b.Version, "cannot promote an inactive bundle")
	}

	b.CanaryPct = pct
	return b.Clone(), nil
}

// StampProvenance merges entries into a bundle's provenance map.
func (s *MemoryStore) StampProvenance(ctx context.Context, id string, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bundles[id]
	if !ok {
		return ErrNotFound
	}
	if b.Provenance == nil {
		b.Provenance = map[string]string{}
	}
	for k, v := range entries {
		b.Provenance[k] = v
	}
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
