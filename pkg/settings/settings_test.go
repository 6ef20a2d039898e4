package settings

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

// storesUnderTest lets the same suite run against both backends.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_GetCreatesSafeDefaults(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get(context.Background())
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.CanaryPct != 0 {
				t.Errorf("default CanaryPct = %v, want 0", got.CanaryPct)
			}
			if !got.KillSwitch {
				t.Error("default KillSwitch = false, want true")
			}
		})
	}
}

func TestStore_UpdatePersists(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			updated, err := store.Update(ctx, "operator", "enable canary", func(s *Settings) error {
				s.CanaryPct = 10
				s.KillSwitch = false
				return nil
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if updated.CanaryPct != 10 || updated.KillSwitch {
				t.Errorf("Update() = {pct: %v, kill: %v}, want {10, false}", updated.CanaryPct, updated.KillSwitch)
			}
			if updated.UpdatedBy != "operator" || updated.UpdateReason != "enable canary" {
				t.Errorf("Update() stamped %q/%q, want operator/enable canary", updated.UpdatedBy, updated.UpdateReason)
			}

			got, err := store.Get(ctx)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.CanaryPct != 10 || got.KillSwitch {
				t.Errorf("Get() after update = {pct: %v, kill: %v}, want {10, false}", got.CanaryPct, got.KillSwitch)
			}
			if got.UpdatedAt.IsZero() {
				t.Error("Get() UpdatedAt is zero")
			}
		})
	}
}

func TestStore_UpdateAborted(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Update(ctx, "operator", "setup", func(s *Settings) error {
				s.CanaryPct = 25
				return nil
			}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			_, err := store.Update(ctx, "operator", "bad", func(s *Settings) error {
				s.CanaryPct = 99
				return fmt.Errorf("changed my mind")
			})
			if !errors.Is(err, ErrUpdateAborted) {
				t.Fatalf("Update() error = %v, want ErrUpdateAborted", err)
			}

			got, err := store.Get(ctx)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.CanaryPct != 25 {
				t.Errorf("CanaryPct after aborted update = %v, want 25", got.CanaryPct)
			}
		})
	}
}

func TestStore_UpdateValidation(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Update(context.Background(), "operator", "bad pct", func(s *Settings) error {
				s.CanaryPct = 150
				return nil
			})
			if !errors.Is(err, ErrUpdateAborted) {
				t.Errorf("Update(pct=150) error = %v, want ErrUpdateAborted", err)
			}
		})
	}
}

func TestStore_FeatureFlagsRoundTrip(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Update(ctx, "operator", "flags", func(s *Settings) error {
				s.FeatureFlags = map[string]bool{"aggressive_unsubscribe": true}
				return nil
			}); err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			got, err := store.Get(ctx)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.FeatureFlags["aggressive_unsubscribe"] {
				t.Error("feature flag lost on round trip")
			}
		})
	}
}

func TestStore_SequentialWritersSeePriorWrites(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				if _, err := store.Update(ctx, "operator", "bump", func(s *Settings) error {
					s.CanaryPct += 10
					return nil
				}); err != nil {
					t.Fatalf("Update() error = %v", err)
				}
			}

			got, err := store.Get(ctx)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.CanaryPct != 50 {
				t.Errorf("CanaryPct after 5 bumps = %v, want 50", got.CanaryPct)
			}
		})
	}
}
