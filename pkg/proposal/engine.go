package proposal

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/yardstick"
)

const (
	// categoryBump is added when the classifier placed the record in
	// a category, a strong signal the condition matched for the
	// right reason.
	categoryBump = 0.10

	// staleExpiryDays is the age past expiry after which a record is
	// considered safe to act on with high confidence.
	staleExpiryDays = 30

	// staleExpiryConfidence is the floor applied to long-expired
	// records.
	staleExpiryConfidence = 0.95

	minConfidence = 0.01
	maxConfidence = 0.99
)

// Engine turns records into proposals by evaluating policies in
// priority order. It is read-only: persisting the emitted proposal
// and recording metrics happen at the call site.
type Engine struct {
	evaluator *yardstick.Evaluator
	weights   *Weights
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates a proposal engine. A nil weights store disables
// personalization.
func NewEngine(weights *Weights, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		evaluator: yardstick.NewEvaluator(logger),
		weights:   weights,
		logger:    logger.With("component", "proposal.engine"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	e.evaluator = e.evaluator.WithClock(now)
	return e
}

// Propose evaluates policies against the record in ascending priority
// order and returns a proposal for the first policy that matches with
// sufficient confidence, or nil when none does. Policies are mutually
// exclusive by priority: once one fires, lower-priority policies are
// not consulted.
func (e *Engine) Propose(record *Record, policies []*policy.Policy) *ProposedAction {
	now := e.now()
	ctx := BuildContext(record, now)

	ordered := make([]*policy.Policy, len(policies))
	copy(ordered, policies)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].Name < ordered[j].Name
	})

	for _, p := range ordered {
		if !p.Enabled {
			continue
		}
		if !e.evaluator.Evaluate(p.Condition, ctx) {
			continue
		}

		confidence := e.confidence(p, record, now)
		if confidence < p.ConfidenceThreshold {
			e.logger.Debug("policy matched below threshold",
				"policy", p.Name,
				"record", record.ID,
				"confidence", confidence,
				"threshold", p.ConfidenceThreshold,
			)
			continue
		}

		return e.buildProposal(p, record, ctx, confidence, now)
	}
	return nil
}

// confidence blends the policy's base threshold with contextual bumps
// and the user's learned weights, clamped to [0.01, 0.99].
func (e *Engine) confidence(p *policy.Policy, record *Record, now time.Time) float64 {
	confidence := p.ConfidenceThreshold

	if record.Category != "" {
		confidence += categoryBump
	}
	if expired, ok := expiredDays(record, now); ok && expired > staleExpiryDays {
		if confidence < staleExpiryConfidence {
			confidence = staleExpiryConfidence
		}
	}

	if e.weights != nil {
		confidence += e.weights.Adjustment(record.User, FeatureKeys(StableFeatures(record)))
	}

	if confidence < minConfidence {
		confidence = minConfidence
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	return confidence
}

func (e *Engine) buildProposal(p *policy.Policy, record *Record, ctx yardstick.Context, confidence float64, now time.Time) *ProposedAction {
	metrics := map[string]float64{
		"age_days": float64(now.Sub(record.ReceivedAt)) / float64(day),
	}
	if expired, ok := expiredDays(record, now); ok {
		metrics["expired_days"] = expired
	}

	params := make(map[string]string, len(p.Params))
	for k, v := range p.Params {
		params[k] = v
	}

	return &ProposedAction{
		SubjectRecordID: record.ID,
		User:            record.User,
		Action:          p.Action,
		Params:          params,
		Confidence:      confidence,
		PolicyID:        p.ID,
		Status:          StatusPending,
		CreatedAt:       now,
		Rationale: Rationale{
			PolicyID:   p.ID,
			PolicyName: p.Name,
			Features:   StableFeatures(record),
			Metrics:    metrics,
			Narrative:  narrative(p, record, now),
		},
	}
}

func expiredDays(record *Record, now time.Time) (float64, bool) {
	if record.ExpiresAt.IsZero() {
		return 0, false
	}
	return float64(now.Sub(record.ExpiresAt)) / float64(day), true
}

func narrative(p *policy.Policy, record *Record, now time.Time) string {
	text := fmt.Sprintf("policy %q proposes %s for message %q from %s",
		p.Name, p.Action, record.Subject, record.From)
	if record.Category != "" {
		text += fmt.Sprintf(" (category %s)", record.Category)
	}
	if expired, ok := expiredDays(record, now); ok && expired > 0 {
		text += fmt.Sprintf(", expired %.0f days ago", expired)
	}
	return text
}
