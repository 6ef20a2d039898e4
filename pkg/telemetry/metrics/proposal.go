package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"steward-hq/steward/pkg/policy"
)

// ProposalMetrics tracks the proposal pipeline.
//
// Metrics:
//   - steward_core_policy_fired_total: proposals emitted, by policy and action
//   - steward_core_proposal_decisions_total: review outcomes, by action and status
//   - steward_core_proposal_confidence: confidence distribution of emitted proposals
//   - steward_core_executions_total: executor invocations, by action and outcome
type ProposalMetrics struct {
	firedTotal      *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	confidence      prometheus.Histogram
	executionsTotal *prometheus.CounterVec
}

// NewProposalMetrics creates and registers the proposal metrics group.
func NewProposalMetrics(cfg *Config, registry *prometheus.Registry) *ProposalMetrics {
	pm := &ProposalMetrics{
		firedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_fired_total",
				Help:      "Total number of proposals emitted, by policy and action",
			},
			[]string{"policy", "action"},
		),

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proposal_decisions_total",
				Help:      "Total number of proposal review decisions, by action and resulting status",
			},
			[]string{"action", "status"},
		),

		confidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proposal_confidence",
				Help:      "Confidence distribution of emitted proposals",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9), // 0.1 .. 0.9
			},
		),

		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "executions_total",
				Help:      "Total number of executor invocations, by action and outcome",
			},
			[]string{"action", "outcome"},
		),
	}

	registry.MustRegister(
		pm.firedTotal,
		pm.decisionsTotal,
		pm.confidence,
		pm.executionsTotal,
	)

	return pm
}

// RecordFired records an emitted proposal.
func (pm *ProposalMetrics) RecordFired(policyName string, action policy.ActionType, confidence float64) {
	pm.firedTotal.WithLabelValues(policyName, string(action)).Inc()
	pm.confidence.Observe(confidence)
}

// RecordDecision records a review decision's resulting status
// ("approved", "rejected", "executed", "failed").
func (pm *ProposalMetrics) RecordDecision(action policy.ActionType, status string) {
	pm.decisionsTotal.WithLabelValues(string(action), status).Inc()
}

// RecordExecution records an executor invocation outcome ("success",
// "fail").
func (pm *ProposalMetrics) RecordExecution(action policy.ActionType, outcome string) {
	pm.executionsTotal.WithLabelValues(string(action), outcome).Inc()
}
