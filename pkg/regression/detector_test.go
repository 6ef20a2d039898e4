package regression

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"steward-hq/steward/pkg/rollout"
	"steward-hq/steward/pkg/settings"
)

type stubMetrics struct {
	stats *WindowStats
	err   error
}

func (s *stubMetrics) WindowStats(ctx context.Context, windowRuns int) (*WindowStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

type capturedIncidents struct {
	incidents []*rollout.Incident
}

func (c *capturedIncidents) Emit(ctx context.Context, incident *rollout.Incident) error {
	c.incidents = append(c.incidents, incident)
	return nil
}

func healthyStats() *WindowStats {
	return &WindowStats{
		Baseline: VersionStats{Samples: 500, Quality: 95, LatencyP95Ms: 800, CostCents: 1.5},
		Canary:   VersionStats{Samples: 50, Quality: 94, LatencyP95Ms: 900, CostCents: 1.6},
	}
}

func newDetector(t *testing.T, metrics MetricsStore) (*Detector, settings.Store, *capturedIncidents) {
	t.Helper()

	st := settings.NewMemoryStore()
	incidents := &capturedIncidents{}
	d, err := NewDetector(metrics, st, incidents, nil, nil)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d, st, incidents
}

func TestDetector_HealthyCanary(t *testing.T) {
	d, st, incidents := newDetector(t, &stubMetrics{stats: healthyStats()})

	// Clear the default kill switch so we can observe that a healthy
	// evaluation does not touch settings.
	if _, err := st.Update(context.Background(), "operator", "arm canary", func(s *settings.Settings) error {
		s.KillSwitch = false
		s.CanaryPct = 25
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	result := d.Evaluate(context.Background(), 100)
	if result.Action != ActionOK {
		t.Fatalf("Action = %v, want ok (reason %q)", result.Action, result.Reason)
	}

	got, _ := st.Get(context.Background())
	if got.KillSwitch || got.CanaryPct != 25 {
		t.Errorf("settings mutated by healthy evaluation: %+v", got)
	}
	if len(incidents.incidents) != 0 {
		t.Errorf("incidents = %d, want 0", len(incidents.incidents))
	}
}

func TestDetector_InsufficientSamples(t *testing.T) {
	stats := healthyStats()
	stats.Canary.Samples = 29
	// Make every metric terrible; with too few samples the detector
	// must still decline.
	stats.Canary.Quality = 10
	stats.Canary.LatencyP95Ms = 10000
	stats.Canary.CostCents = 50

	d, st, incidents := newDetector(t, &stubMetrics{stats: stats})
	if _, err := st.Update(context.Background(), "operator", "arm canary", func(s *settings.Settings) error {
		s.KillSwitch = false
		s.CanaryPct = 25
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	result := d.Evaluate(context.Background(), 100)
	if result.Action != ActionNone {
		t.Fatalf("Action = %v, want none", result.Action)
	}
	if !strings.Contains(result.Reason, "insufficient canary samples") {
		t.Errorf("Reason = %q, want insufficient-samples", result.Reason)
	}

	got, _ := st.Get(context.Background())
	if got.KillSwitch || got.CanaryPct != 25 {
		t.Errorf("settings mutated without judgment: %+v", got)
	}
	if len(incidents.incidents) != 0 {
		t.Errorf("incidents = %d, want 0", len(incidents.incidents))
	}
}

func TestDetector_QualityDropRollsBack(t *testing.T) {
	stats := healthyStats()
	stats.Baseline.Quality = 95
	stats.Canary.Quality = 88 // drop of 7 > 5.0

	d, st, incidents := newDetector(t, &stubMetrics{stats: stats})
	if _, err := st.Update(context.Background(), "operator", "arm canary", func(s *settings.Settings) error {
		s.KillSwitch = false
		s.CanaryPct = 25
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	result := d.Evaluate(context.Background(), 100)
	if result.Action != ActionRollback {
		t.Fatalf("Action = %v, want rollback", result.Action)
	}
	if len(result.Breaches) != 1 || !strings.Contains(result.Breaches[0], "quality drop") {
		t.Errorf("Breaches = %v, want one quality-drop breach", result.Breaches)
	}

	got, _ := st.Get(context.Background())
	if !got.KillSwitch {
		t.Error("KillSwitch = false after rollback, want true")
	}
	if got.CanaryPct != 0 {
		t.Errorf("CanaryPct = %v after rollback, want 0", got.CanaryPct)
	}
	if got.UpdatedBy != "detector" {
		t.Errorf("UpdatedBy = %q, want detector", got.UpdatedBy)
	}

	if len(incidents.incidents) != 1 {
		t.Fatalf("incidents = %d, want 1", len(incidents.incidents))
	}
	if incidents.incidents[0].Severity != rollout.SeverityHigh {
		t.Errorf("incident severity = %q, want high", incidents.incidents[0].Severity)
	}
}

func TestDetector_IndependentBreaches(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WindowStats)
		want   string
	}{
		{"latency", func(s *WindowStats) { s.Canary.LatencyP95Ms = 1700 }, "p95 latency"},
		{"cost", func(s *WindowStats) { s.Canary.CostCents = 3.5 }, "cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := healthyStats()
			tt.mutate(stats)

			d, _, _ := newDetector(t, &stubMetrics{stats: stats})
			result := d.Evaluate(context.Background(), 100)
			if result.Action != ActionRollback {
				t.Fatalf("Action = %v, want rollback", result.Action)
			}
			if len(result.Breaches) != 1 || !strings.Contains(result.Breaches[0], tt.want) {
				t.Errorf("Breaches = %v, want one containing %q", result.Breaches, tt.want)
			}
		})
	}
}

func TestDetector_MetricsFailureDeclines(t *testing.T) {
	d, st, _ := newDetector(t, &stubMetrics{err: fmt.Errorf("connection refused")})
	if _, err := st.Update(context.Background(), "operator", "arm canary", func(s *settings.Settings) error {
		s.KillSwitch = false
		s.CanaryPct = 25
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	result := d.Evaluate(context.Background(), 100)
	if result.Action != ActionNone {
		t.Fatalf("Action = %v, want none on metrics failure", result.Action)
	}

	got, _ := st.Get(context.Background())
	if got.KillSwitch {
		t.Error("KillSwitch thrown on a metrics read failure")
	}
}

func TestDetector_Idempotent(t *testing.T) {
	stats := healthyStats()
	stats.Canary.Quality = 80
	metrics := &stubMetrics{stats: stats}

	d, st, incidents := newDetector(t, metrics)

	if result := d.Evaluate(context.Background(), 100); result.Action != ActionRollback {
		t.Fatalf("first Evaluate() = %v, want rollback", result.Action)
	}

	// After the rollback canary traffic dries up: the next window has
	// almost no canary samples and the detector declines.
	metrics.stats = &WindowStats{
		Baseline: VersionStats{Samples: 500, Quality: 95},
		Canary:   VersionStats{Samples: 2, Quality: 80},
	}
	if result := d.Evaluate(context.Background(), 100); result.Action != ActionNone {
		t.Errorf("second Evaluate() = %v, want none", result.Action)
	}

	got, _ := st.Get(context.Background())
	if !got.KillSwitch || got.CanaryPct != 0 {
		t.Errorf("settings = %+v, want kill switch on and zero canary", got)
	}
	if len(incidents.incidents) != 1 {
		t.Errorf("incidents = %d, want 1 (no duplicate for the dried-up window)", len(incidents.incidents))
	}
}
