package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testAction(record, actor string, outcome Outcome) *Action {
	return &Action{
		SubjectRecordID: record,
		Action:          "archive",
		Params:          map[string]string{"folder": "archive"},
		Actor:           actor,
		Outcome:         outcome,
		Why:             "matched policy expired-promos",
	}
}

// storesUnderTest lets the same suite run against both backends.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")
	sqlite, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_AppendAssignsIDAndTimestamp(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			stored, err := store.Append(ctx, testAction("msg-1", "alice", OutcomeSuccess))
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if stored.ID == "" {
				t.Error("Append() should assign an ID")
			}
			if stored.Timestamp.IsZero() {
				t.Error("Append() should assign a timestamp")
			}
		})
	}
}

func TestStore_AppendValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Action)
	}{
		{"missing subject", func(a *Action) { a.SubjectRecordID = "" }},
		{"missing action", func(a *Action) { a.Action = "" }},
		{"missing actor", func(a *Action) { a.Actor = "" }},
		{"unknown outcome", func(a *Action) { a.Outcome = "maybe" }},
	}

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					a := testAction("msg-1", "alice", OutcomeSuccess)
					tt.mutate(a)
					if _, err := store.Append(context.Background(), a); !errors.Is(err, ErrInvalidAction) {
						t.Errorf("Append() error = %v, want ErrInvalidAction", err)
					}
				})
			}
		})
	}
}

func TestStore_ForRecord(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i, a := range []*Action{
				testAction("msg-1", "alice", OutcomeSuccess),
				testAction("msg-2", "alice", OutcomeFail),
				testAction("msg-1", "bob", OutcomeNoop),
			} {
				a.Timestamp = time.Date(2026, 3, 1, 12, i, 0, 0, time.UTC)
				if _, err := store.Append(ctx, a); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}

			got, err := store.ForRecord(ctx, "msg-1")
			if err != nil {
				t.Fatalf("ForRecord() error = %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("ForRecord() returned %d actions, want 2", len(got))
			}
			// Newest first.
			if got[0].Actor != "bob" || got[1].Actor != "alice" {
				t.Errorf("ForRecord() order = %s, %s, want bob, alice", got[0].Actor, got[1].Actor)
			}
		})
	}
}

func TestStore_QueryFilters(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			for i, outcome := range []Outcome{OutcomeSuccess, OutcomeFail, OutcomeSuccess, OutcomeNoop} {
				a := testAction("msg-1", "alice", outcome)
				a.Timestamp = base.Add(time.Duration(i) * time.Hour)
				if _, err := store.Append(ctx, a); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}

			got, err := store.Query(ctx, &Query{Outcome: OutcomeSuccess})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != 2 {
				t.Errorf("Query(outcome=success) returned %d, want 2", len(got))
			}

			got, err = store.Query(ctx, &Query{Since: base.Add(time.Hour), Until: base.Add(3 * time.Hour)})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(got) != 2 {
				t.Errorf("Query(time range) returned %d, want 2", len(got))
			}

			n, err := store.Count(ctx, &Query{Actor: "alice"})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 4 {
				t.Errorf("Count(actor=alice) = %d, want 4", n)
			}
		})
	}
}

func TestStore_QueryPagination(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				a := testAction("msg-1", "alice", OutcomeSuccess)
				a.Timestamp = base.Add(time.Duration(i) * time.Minute)
				if _, err := store.Append(ctx, a); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}

			page, err := store.Query(ctx, &Query{Limit: 2, Offset: 1})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(page) != 2 {
				t.Fatalf("Query(limit=2, offset=1) returned %d, want 2", len(page))
			}
			// Newest first: offset 1 skips the newest (minute 4).
			if !page[0].Timestamp.Equal(base.Add(3 * time.Minute)) {
				t.Errorf("page[0].Timestamp = %v, want %v", page[0].Timestamp, base.Add(3*time.Minute))
			}
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			old := testAction("msg-old", "alice", OutcomeSuccess)
			old.Timestamp = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			if _, err := store.Append(ctx, old); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			recent := testAction("msg-new", "alice", OutcomeSuccess)
			recent.Timestamp = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			if _, err := store.Append(ctx, recent); err != nil {
				t.Fatalf("Append() error = %v", err)
			}

			removed, err := store.Prune(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if removed != 1 {
				t.Errorf("Prune() removed = %d, want 1", removed)
			}

			n, err := store.Count(ctx, &Query{})
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if n != 1 {
				t.Errorf("Count() after prune = %d, want 1", n)
			}
		})
	}
}
