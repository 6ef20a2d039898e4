package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"steward-hq/steward/pkg/audit"
	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/proposal"
)

const defaultExecTimeout = 30 * time.Second

// Lifecycle drives proposals through review. Approving a proposal
// executes it; rejecting records a no-op. Both paths write exactly
// one audit action and feed the review back into the learned weights
// and the policy's precision stats.
//
// Approval and execution are deliberately decoupled: an approval
// stands even when the executor fails, the proposal just ends in
// failed instead of executed.
type Lifecycle struct {
	proposals   proposal.Store
	policies    policy.Store
	audits      audit.Store
	weights     *proposal.Weights
	executor    Executor
	metrics     Metrics
	logger      *slog.Logger
	execTimeout time.Duration
	now         func() time.Time
}

// Metrics receives review decisions and execution outcomes.
// *metrics.ProposalMetrics satisfies it.
type Metrics interface {
	RecordDecision(action policy.ActionType, status string)
	RecordExecution(action policy.ActionType, outcome string)
}

// Config assembles a Lifecycle. Proposals, Policies, Audits, and
// Executor are required; Weights and Metrics may be nil.
type Config struct {
	Proposals   proposal.Store
	Policies    policy.Store
	Audits      audit.Store
	Weights     *proposal.Weights
	Executor    Executor
	Metrics     Metrics
	Logger      *slog.Logger
	ExecTimeout time.Duration
}

// NewLifecycle creates a lifecycle from the config.
func NewLifecycle(cfg Config) (*Lifecycle, error) {
	if cfg.Proposals == nil || cfg.Policies == nil || cfg.Audits == nil {
		return nil, fmt.Errorf("proposals, policies, and audits stores are required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ExecTimeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	return &Lifecycle{
		proposals:   cfg.Proposals,
		policies:    cfg.Policies,
		audits:      cfg.Audits,
		weights:     cfg.Weights,
		executor:    cfg.Executor,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "approval.lifecycle"),
		execTimeout: timeout,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the time source, for tests.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	l.now = now
	return l
}

// Approve moves a pending proposal to approved, invokes the executor
// once with a bounded timeout, and lands the proposal in executed or
// failed. The transition guard runs before any side effect, so
// approving a non-pending proposal returns a *proposal.TransitionError
// and changes nothing.
func (l *Lifecycle) Approve(ctx context.Context, id, reviewer string) (*proposal.ProposedAction, error) {
	now := l.now()

	p, err := l.proposals.Transition(ctx, id, proposal.StatusPending, proposal.StatusApproved, reviewer, now)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, l.execTimeout)
	execErr := l.executor.Execute(execCtx, p.Action, p.Params)
	cancel()

	final := proposal.StatusExecuted
	outcome := audit.OutcomeSuccess
	errMsg := ""
	if execErr != nil {
		final = proposal.StatusFailed
		outcome = audit.OutcomeFail
		errMsg = execErr.Error()
		l.logger.Warn("executor failed",
			"proposal", p.ID,
			"action", p.Action,
			"error", execErr,
		)
	}

	p, err = l.proposals.Transition(ctx, id, proposal.StatusApproved, final, "", time.Time{})
	if err != nil {
		return nil, err
	}

	l.writeAudit(ctx, p, reviewer, outcome, errMsg)
	l.recordReview(ctx, p, reviewer, true)
	if l.metrics != nil {
		l.metrics.RecordDecision(p.Action, string(p.Status))
		l.metrics.RecordExecution(p.Action, string(outcome))
	}

	l.logger.Info("proposal approved",
		"proposal", p.ID,
		"action", p.Action,
		"status", p.Status,
		"reviewer", reviewer,
	)
	return p, nil
}

// Reject moves a pending proposal to rejected and records a noop
// audit action. The executor is never called.
func (l *Lifecycle) Reject(ctx context.Context, id, reviewer string) (*proposal.ProposedAction, error) {
	p, err := l.proposals.Transition(ctx, id, proposal.StatusPending, proposal.StatusRejected, reviewer, l.now())
	if err != nil {
		return nil, err
	}

	l.writeAudit(ctx, p, reviewer, audit.OutcomeNoop, "")
	l.recordReview(ctx, p, reviewer, false)
	if l.metrics != nil {
		l.metrics.RecordDecision(p.Action, string(p.Status))
	}

	l.logger.Info("proposal rejected",
		"proposal", p.ID,
		"action", p.Action,
		"reviewer", reviewer,
	)
	return p, nil
}

// writeAudit appends the per-transition audit action. Audit failures
// are logged, not propagated: the transition already happened and the
// caller's view of it must not change.
func (l *Lifecycle) writeAudit(ctx context.Context, p *proposal.ProposedAction, actor string, outcome audit.Outcome, errMsg string) {
	_, err := l.audits.Append(ctx, &audit.Action{
		SubjectRecordID: p.SubjectRecordID,
		Action:          string(p.Action),
		Params:          p.Params,
		Actor:           actor,
		Outcome:         outcome,
		Error:           errMsg,
		Why:             p.Rationale.Narrative,
		Timestamp:       l.now(),
	})
	if err != nil {
		l.logger.Error("failed to write audit action",
			"proposal", p.ID,
			"error", err,
		)
	}
}

// recordReview feeds the decision back into learning and stats.
func (l *Lifecycle) recordReview(ctx context.Context, p *proposal.ProposedAction, reviewer string, approved bool) {
	if l.weights != nil {
		label := -1.0
		if approved {
			label = 1.0
		}
		l.weights.Update(p.User, proposal.FeatureKeys(p.Rationale.Features), label)
	}

	if p.PolicyID != "" {
		if err := l.policies.RecordReview(ctx, p.PolicyID, p.User, approved); err != nil {
			l.logger.Error("failed to record review stats",
				"policy", p.PolicyID,
				"error", err,
			)
		}
	}
}
