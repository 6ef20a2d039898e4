package approval

import (
	"context"
	"fmt"

	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/proposal"
	"steward-hq/steward/pkg/yardstick"
)

const (
	// graduatedPriority places graduated policies in the middle of
	// the priority range, behind hand-written high-priority rules.
	graduatedPriority = 50

	// graduatedThresholdFloor is the minimum confidence threshold a
	// graduated policy may carry.
	graduatedThresholdFloor = 0.7
)

// AlwaysDoThis graduates a decided proposal into a reusable policy:
// the new policy's condition is the conjunction of the proposal's
// stable rationale features, so it fires on future records that look
// like this one. Volatile numeric features never make it into the
// condition.
//
// The proposal must already be decided; graduating a pending proposal
// is an error.
func (l *Lifecycle) AlwaysDoThis(ctx context.Context, proposalID, actor string) (*policy.Policy, error) {
	p, err := l.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.Status == proposal.StatusPending {
		return nil, fmt.Errorf("proposal %s is still pending, decide it first", proposalID)
	}

	conjuncts := []*yardstick.Node{}
	for _, key := range []string{"category", "sender_domain"} {
		if v, ok := p.Rationale.Features[key]; ok {
			conjuncts = append(conjuncts, yardstick.Leaf(yardstick.OpEqual, key, v))
		}
	}
	if len(conjuncts) == 0 {
		return nil, fmt.Errorf("proposal %s has no stable features to build a condition from", proposalID)
	}

	threshold := p.Confidence - 0.05
	if threshold < graduatedThresholdFloor {
		threshold = graduatedThresholdFloor
	}

	params := make(map[string]string, len(p.Params))
	for k, v := range p.Params {
		params[k] = v
	}

	newPolicy := &policy.Policy{
		Name:                graduatedName(p),
		Enabled:             true,
		Priority:            graduatedPriority,
		Condition:           yardstick.All(conjuncts...),
		Action:              p.Action,
		Params:              params,
		ConfidenceThreshold: threshold,
		Provenance:          fmt.Sprintf("graduated from proposal %s by %s", p.ID, actor),
	}

	if err := l.policies.Save(ctx, newPolicy); err != nil {
		return nil, err
	}

	l.logger.Info("proposal graduated into policy",
		"proposal", p.ID,
		"policy", newPolicy.Name,
		"threshold", threshold,
		"actor", actor,
	)
	return newPolicy, nil
}

func graduatedName(p *proposal.ProposedAction) string {
	suffix := p.Rationale.Features["sender_domain"]
	if suffix == "" {
		suffix = p.Rationale.Features["category"]
	}
	return fmt.Sprintf("always-%s-%s", p.Action, suffix)
}
