package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"steward-hq/steward/pkg/policy"
)

// TestCollector_NewCollector tests collector creation
func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(DefaultConfig(), registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.registry != registry {
		t.Error("Collector registry not set correctly")
	}
	if collector.Proposal() == nil {
		t.Error("Expected non-nil proposal metrics group")
	}
	if collector.Rollout() == nil {
		t.Error("Expected non-nil rollout metrics group")
	}
}

// TestCollector_NilRegistry tests that a nil registry gets a fresh one
func TestCollector_NilRegistry(t *testing.T) {
	collector := NewCollector(nil, nil)
	if collector.Registry() == nil {
		t.Fatal("Expected collector to create its own registry")
	}
}

// TestProposalMetrics_RecordFired tests proposal fire recording
func TestProposalMetrics_RecordFired(t *testing.T) {
	collector := NewCollector(DefaultConfig(), nil)
	pm := collector.Proposal()

	pm.RecordFired("expired-promos", policy.ActionArchive, 0.85)
	pm.RecordFired("expired-promos", policy.ActionArchive, 0.72)
	pm.RecordFired("newsletter-label", policy.ActionLabel, 0.6)

	got := testutil.ToFloat64(pm.firedTotal.WithLabelValues("expired-promos", "archive"))
	if got != 2 {
		t.Errorf("firedTotal[expired-promos,archive] = %v, want 2", got)
	}
	got = testutil.ToFloat64(pm.firedTotal.WithLabelValues("newsletter-label", "label"))
	if got != 1 {
		t.Errorf("firedTotal[newsletter-label,label] = %v, want 1", got)
	}
}

// TestProposalMetrics_RecordDecision tests decision recording
func TestProposalMetrics_RecordDecision(t *testing.T) {
	collector := NewCollector(DefaultConfig(), nil)
	pm := collector.Proposal()

	pm.RecordDecision(policy.ActionArchive, "approved")
	pm.RecordDecision(policy.ActionArchive, "approved")
	pm.RecordDecision(policy.ActionDelete, "rejected")
	pm.RecordExecution(policy.ActionArchive, "success")

	got := testutil.ToFloat64(pm.decisionsTotal.WithLabelValues("archive", "approved"))
	if got != 2 {
		t.Errorf("decisionsTotal[archive,approved] = %v, want 2", got)
	}
	got = testutil.ToFloat64(pm.executionsTotal.WithLabelValues("archive", "success"))
	if got != 1 {
		t.Errorf("executionsTotal[archive,success] = %v, want 1", got)
	}
}

// TestRolloutMetrics_RuntimeState tests gauge mirroring of runtime settings
func TestRolloutMetrics_RuntimeState(t *testing.T) {
	collector := NewCollector(DefaultConfig(), nil)
	rm := collector.Rollout()

	rm.SetRuntimeState(25, false)
	if got := testutil.ToFloat64(rm.canaryPct); got != 25 {
		t.Errorf("canaryPct = %v, want 25", got)
	}
	if got := testutil.ToFloat64(rm.killSwitch); got != 0 {
		t.Errorf("killSwitch = %v, want 0", got)
	}

	rm.SetRuntimeState(0, true)
	if got := testutil.ToFloat64(rm.canaryPct); got != 0 {
		t.Errorf("canaryPct = %v, want 0", got)
	}
	if got := testutil.ToFloat64(rm.killSwitch); got != 1 {
		t.Errorf("killSwitch = %v, want 1", got)
	}
}

// TestRolloutMetrics_Counters tests rollout counter recording
func TestRolloutMetrics_Counters(t *testing.T) {
	collector := NewCollector(DefaultConfig(), nil)
	rm := collector.Rollout()

	rm.RecordActivation("1.2.0")
	rm.RecordPromotion()
	rm.RecordRollback("regression")
	rm.RecordBreach("latency")
	rm.RecordBreach("latency")

	if got := testutil.ToFloat64(rm.activationsTotal.WithLabelValues("1.2.0")); got != 1 {
		t.Errorf("activationsTotal[1.2.0] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.rollbacksTotal.WithLabelValues("regression")); got != 1 {
		t.Errorf("rollbacksTotal[regression] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rm.breachesTotal.WithLabelValues("latency")); got != 2 {
		t.Errorf("breachesTotal[latency] = %v, want 2", got)
	}
}
