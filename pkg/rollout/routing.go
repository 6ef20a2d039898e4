package rollout

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"steward-hq/steward/pkg/policy"
)

// InCanary reports whether a user falls in the canary cohort at the
// given traffic percentage. The assignment hashes the user so a given
// user stays in or out of the cohort for as long as the percentage
// holds, instead of flapping between rule sets on every decision.
func InCanary(user string, pct float64) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	h := fnv.New32a()
	h.Write([]byte(user))
	return float64(h.Sum32()%100) < pct
}

// Policies rehydrates the bundle's rule snapshot. A bundle created
// without rules yields an empty set.
func (b *Bundle) Policies() ([]*policy.Policy, error) {
	if len(b.Rules) == 0 {
		return nil, nil
	}
	var policies []*policy.Policy
	if err := json.Unmarshal(b.Rules, &policies); err != nil {
		return nil, fmt.Errorf("failed to decode rule snapshot for bundle %s: %w", b.Version, err)
	}
	return policies, nil
}
