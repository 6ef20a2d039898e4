package rollout

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"steward-hq/steward/pkg/settings"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type capturedIncidents struct {
	incidents []*Incident
}

func (c *capturedIncidents) Emit(ctx context.Context, incident *Incident) error {
	c.incidents = append(c.incidents, incident)
	return nil
}

// storesUnderTest lets the same suite run against both backends.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bundles.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

type ctrlFixture struct {
	controller *Controller
	bundles    Store
	settings   settings.Store
	incidents  *capturedIncidents
	clock      *time.Time
}

func newCtrlFixture(t *testing.T, bundles Store) *ctrlFixture {
	t.Helper()

	f := &ctrlFixture{
		bundles:   bundles,
		settings:  settings.NewMemoryStore(),
		incidents: &capturedIncidents{},
	}
	now := testNow
	f.clock = &now

	c, err := NewController(ControllerConfig{
		Bundles:   bundles,
		Settings:  f.settings,
		Incidents: f.incidents,
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	f.controller = c.WithClock(func() time.Time { return *f.clock })
	return f
}

func (f *ctrlFixture) createBundle(t *testing.T, version string) *Bundle {
	t.Helper()
	b := &Bundle{Version: version}
	if err := f.bundles.Create(context.Background(), b); err != nil {
		t.Fatalf("Create(%s) error = %v", version, err)
	}
	return b
}

func TestController_ActivateRequiresApproval(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			b1 := f.createBundle(t, "1.0.0")
			if _, err := f.controller.Activate(ctx, b1.ID, "appr-1", "alice", 100); err != nil {
				t.Fatalf("Activate() error = %v", err)
			}

			b2 := f.createBundle(t, "1.1.0")
			_, err := f.controller.Activate(ctx, b2.ID, "", "alice", 10)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Activate(no approval) error = %v, want *ValidationError", err)
			}

			// Bundle 2 stays inactive, bundle 1 stays active and
			// unchanged.
			active, err := f.bundles.GetActive(ctx)
			if err != nil {
				t.Fatalf("GetActive() error = %v", err)
			}
			if active == nil || active.Version != "1.0.0" {
				t.Errorf("active bundle = %+v, want 1.0.0", active)
			}
			if active.CanaryPct != 100 {
				t.Errorf("active CanaryPct = %v, want 100", active.CanaryPct)
			}
		})
	}
}

func TestController_ExactlyOneActive(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			b1 := f.createBundle(t, "1.0.0")
			b2 := f.createBundle(t, "1.1.0")
			b3 := f.createBundle(t, "1.2.0")

			for _, b := range []*Bundle{b1, b2, b3} {
				*f.clock = f.clock.Add(time.Hour)
				if _, err := f.controller.Activate(ctx, b.ID, "appr-"+b.Version, "alice", 10); err != nil {
					t.Fatalf("Activate(%s) error = %v", b.Version, err)
				}
			}

			all, err := f.bundles.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			activeCount := 0
			for _, b := range all {
				if b.Active {
					activeCount++
				}
			}
			if activeCount != 1 {
				t.Errorf("active bundles = %d, want exactly 1", activeCount)
			}

			active, err := f.bundles.GetActive(ctx)
			if err != nil {
				t.Fatalf("GetActive() error = %v", err)
			}
			if active.Version != "1.2.0" {
				t.Errorf("active = %s, want 1.2.0", active.Version)
			}
		})
	}
}

func TestController_PromoteStrictlyIncreasing(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			b := f.createBundle(t, "1.0.0")
			if _, err := f.controller.Activate(ctx, b.ID, "appr-1", "alice", 10); err != nil {
				t.Fatalf("Activate() error = %v", err)
			}

			promoted, err := f.controller.Promote(ctx, b.ID, 50)
			if err != nil {
				t.Fatalf("Promote(50) error = %v", err)
			}
			if promoted.CanaryPct != 50 {
				t.Errorf("CanaryPct = %v, want 50", promoted.CanaryPct)
			}

			var se *StateError
			if _, err := f.controller.Promote(ctx, b.ID, 50); !errors.As(err, &se) || se.Kind != KindNotIncreasing {
				t.Errorf("Promote(50 again) error = %v, want StateError %s", err, KindNotIncreasing)
			}
			if _, err := f.controller.Promote(ctx, b.ID, 30); !errors.As(err, &se) || se.Kind != KindNotIncreasing {
				t.Errorf("Promote(30) error = %v, want StateError %s", err, KindNotIncreasing)
			}
			if _, err := f.controller.Promote(ctx, b.ID, 101); err == nil {
				t.Error("Promote(101) succeeded, want error")
			}

			// Inactive bundles cannot be promoted.
			draft := f.createBundle(t, "1.1.0")
			if _, err := f.controller.Promote(ctx, draft.ID, 50); !errors.As(err, &se) || se.Kind != KindBundleInactive {
				t.Errorf("Promote(draft) error = %v, want StateError %s", err, KindBundleInactive)
			}
		})
	}
}

func TestController_RollbackToPreviousBundle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			b1 := f.createBundle(t, "1.0.0")
			if _, err := f.controller.Activate(ctx, b1.ID, "appr-1", "alice", 100); err != nil {
				t.Fatalf("Activate(1.0.0) error = %v", err)
			}
			*f.clock = f.clock.Add(48 * time.Hour)

			b2 := f.createBundle(t, "1.1.0")
			if _, err := f.controller.Activate(ctx, b2.ID, "appr-2", "alice", 25); err != nil {
				t.Fatalf("Activate(1.1.0) error = %v", err)
			}
			*f.clock = f.clock.Add(time.Hour)

			reactivated, err := f.controller.Rollback(ctx, b2.ID, "error spike", "alice", true)
			if err != nil {
				t.Fatalf("Rollback() error = %v", err)
			}
			if reactivated.Version != "1.0.0" {
				t.Errorf("rollback target = %s, want 1.0.0", reactivated.Version)
			}
			if !reactivated.Active || reactivated.CanaryPct != 100 {
				t.Errorf("reactivated = {active: %v, pct: %v}, want {true, 100}", reactivated.Active, reactivated.CanaryPct)
			}

			// Rollback provenance is stamped onto the target.
			target, err := f.bundles.Get(ctx, b1.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if target.Provenance["rolled_back_from"] != "1.1.0" {
				t.Errorf("provenance = %v, want rolled_back_from=1.1.0", target.Provenance)
			}
			if target.Provenance["rollback_reason"] != "error spike" {
				t.Errorf("provenance reason = %q, want error spike", target.Provenance["rollback_reason"])
			}

			// Canary traffic is zeroed in runtime settings.
			st, err := f.settings.Get(ctx)
			if err != nil {
				t.Fatalf("settings.Get() error = %v", err)
			}
			if st.CanaryPct != 0 {
				t.Errorf("settings CanaryPct = %v, want 0", st.CanaryPct)
			}

			// One high-severity incident with the transition context.
			if len(f.incidents.incidents) != 1 {
				t.Fatalf("incidents = %d, want 1", len(f.incidents.incidents))
			}
			inc := f.incidents.incidents[0]
			if inc.Severity != SeverityHigh {
				t.Errorf("incident severity = %q, want high", inc.Severity)
			}
			if inc.Context["from_version"] != "1.1.0" || inc.Context["to_version"] != "1.0.0" {
				t.Errorf("incident context = %v", inc.Context)
			}
		})
	}
}

func TestController_RollbackWithoutPriorBundle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			b := f.createBundle(t, "1.0.0")
			if _, err := f.controller.Activate(ctx, b.ID, "appr-1", "alice", 10); err != nil {
				t.Fatalf("Activate() error = %v", err)
			}

			_, err := f.controller.Rollback(ctx, b.ID, "bad", "alice", false)
			var se *StateError
			if !errors.As(err, &se) || se.Kind != KindNoRollbackTarget {
				t.Fatalf("Rollback() error = %v, want StateError %s", err, KindNoRollbackTarget)
			}

			// The current bundle is untouched.
			got, err := f.bundles.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.Active || got.CanaryPct != 10 {
				t.Errorf("bundle after failed rollback = {active: %v, pct: %v}, want {true, 10}", got.Active, got.CanaryPct)
			}
		})
	}
}

func TestController_RollbackInactiveBundle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			draft := f.createBundle(t, "1.0.0")
			_, err := f.controller.Rollback(ctx, draft.ID, "bad", "alice", false)
			var se *StateError
			if !errors.As(err, &se) || se.Kind != KindBundleInactive {
				t.Errorf("Rollback(draft) error = %v, want StateError %s", err, KindBundleInactive)
			}
		})
	}
}

func TestController_StatusSoakWindow(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			f := newCtrlFixture(t, store)
			ctx := context.Background()

			b := f.createBundle(t, "1.0.0")
			if _, err := f.controller.Activate(ctx, b.ID, "appr-1", "alice", 10); err != nil {
				t.Fatalf("Activate() error = %v", err)
			}

			// Freshly activated: not eligible regardless of gates.
			st, err := f.controller.Status(ctx, b.ID)
			if err != nil {
				t.Fatalf("Status() error = %v", err)
			}
			if st.PromotionEligible {
				t.Error("PromotionEligible = true right after activation, want false")
			}

			*f.clock = f.clock.Add(23 * time.Hour)
			st, _ = f.controller.Status(ctx, b.ID)
			if st.PromotionEligible {
				t.Error("PromotionEligible = true at 23h, want false")
			}

			*f.clock = f.clock.Add(2 * time.Hour)
			st, _ = f.controller.Status(ctx, b.ID)
			if !st.PromotionEligible {
				t.Error("PromotionEligible = false at 25h, want true")
			}
			if st.TimeActive != 25*time.Hour {
				t.Errorf("TimeActive = %v, want 25h", st.TimeActive)
			}

			// At 100% there is nothing left to promote.
			if _, err := f.controller.Promote(ctx, b.ID, 100); err != nil {
				t.Fatalf("Promote(100) error = %v", err)
			}
			st, _ = f.controller.Status(ctx, b.ID)
			if st.PromotionEligible {
				t.Error("PromotionEligible = true at 100%, want false")
			}
		})
	}
}

func TestStore_DuplicateVersion(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.Create(ctx, &Bundle{Version: "1.0.0"}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			err := store.Create(ctx, &Bundle{Version: "1.0.0"})
			var se *StateError
			if !errors.As(err, &se) || se.Kind != KindDuplicateVersion {
				t.Errorf("Create(duplicate) error = %v, want StateError %s", err, KindDuplicateVersion)
			}

			if err := store.Create(ctx, &Bundle{Version: "not-semver"}); err == nil {
				t.Error("Create(not-semver) succeeded, want validation error")
			}
		})
	}
}
