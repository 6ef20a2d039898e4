package approval

import (
	"context"
	"fmt"
	"testing"

	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/proposal"
	"steward-hq/steward/pkg/telemetry/metrics"
)

var _ Metrics = (*metrics.ProposalMetrics)(nil)

type recordedDecision struct {
	action policy.ActionType
	status string
}

type fakeMetrics struct {
	decisions  []recordedDecision
	executions []string
}

func (m *fakeMetrics) RecordDecision(action policy.ActionType, status string) {
	m.decisions = append(m.decisions, recordedDecision{action, status})
}

func (m *fakeMetrics) RecordExecution(action policy.ActionType, outcome string) {
	m.executions = append(m.executions, outcome)
}

func newMetricsFixture(t *testing.T, execErr error) (*fixture, *fakeMetrics) {
	t.Helper()

	f := newFixture(t)
	f.execErr = execErr

	fm := &fakeMetrics{}
	lc, err := NewLifecycle(Config{
		Proposals: f.proposals,
		Policies:  f.policies,
		Audits:    f.audits,
		Weights:   f.weights,
		Metrics:   fm,
		Executor: ExecutorFunc(func(ctx context.Context, action policy.ActionType, params map[string]string) error {
			return f.execErr
		}),
	})
	if err != nil {
		t.Fatalf("NewLifecycle() error = %v", err)
	}
	f.lifecycle = lc
	return f, fm
}

func TestLifecycle_MetricsOnApprove(t *testing.T) {
	f, fm := newMetricsFixture(t, nil)
	p := f.seedProposal(t)

	if _, err := f.lifecycle.Approve(context.Background(), p.ID, "alice"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if len(fm.decisions) != 1 {
		t.Fatalf("decisions recorded = %d, want 1", len(fm.decisions))
	}
	if fm.decisions[0].status != string(proposal.StatusExecuted) {
		t.Errorf("decision status = %q, want executed", fm.decisions[0].status)
	}
	if fm.decisions[0].action != policy.ActionArchive {
		t.Errorf("decision action = %v, want archive", fm.decisions[0].action)
	}
	if len(fm.executions) != 1 || fm.executions[0] != "success" {
		t.Errorf("executions = %v, want [success]", fm.executions)
	}
}

func TestLifecycle_MetricsOnExecutorFailure(t *testing.T) {
	f, fm := newMetricsFixture(t, fmt.Errorf("imap connection reset"))
	p := f.seedProposal(t)

	if _, err := f.lifecycle.Approve(context.Background(), p.ID, "alice"); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if len(fm.decisions) != 1 || fm.decisions[0].status != string(proposal.StatusFailed) {
		t.Errorf("decisions = %+v, want one failed decision", fm.decisions)
	}
	if len(fm.executions) != 1 || fm.executions[0] != "fail" {
		t.Errorf("executions = %v, want [fail]", fm.executions)
	}
}

func TestLifecycle_MetricsOnReject(t *testing.T) {
	f, fm := newMetricsFixture(t, nil)
	p := f.seedProposal(t)

	if _, err := f.lifecycle.Reject(context.Background(), p.ID, "alice"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	if len(fm.decisions) != 1 || fm.decisions[0].status != string(proposal.StatusRejected) {
		t.Errorf("decisions = %+v, want one rejected decision", fm.decisions)
	}
	if len(fm.executions) != 0 {
		t.Errorf("executions = %v, want none for a rejection", fm.executions)
	}
}
