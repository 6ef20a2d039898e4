package rollout

import (
	"fmt"
)

// GateMetrics are the windowed canary observations the gates judge.
// They are computed externally over historical decision records; the
// controller treats them as opaque inputs.
type GateMetrics struct {
	// ErrorRate is the fraction of decisions that errored, in [0, 1].
	ErrorRate float64 `json:"error_rate"`

	// DenyRate is the fraction of decisions rejected by reviewers,
	// in [0, 1].
	DenyRate float64 `json:"deny_rate"`

	// CostIncrease is the cost delta versus the baseline version, as
	// a fraction (0.2 = 20% more expensive).
	CostIncrease float64 `json:"cost_increase"`

	// Samples is the number of decisions in the window.
	Samples int `json:"samples"`
}

// GateConfig holds the promotion thresholds.
type GateConfig struct {
	// MaxErrorRate is the highest tolerated error rate. Default 0.05.
	MaxErrorRate float64 `yaml:"max_error_rate" json:"max_error_rate"`

	// MaxDenyRate is the highest tolerated deny rate. Default 0.30.
	MaxDenyRate float64 `yaml:"max_deny_rate" json:"max_deny_rate"`

	// MaxCostIncrease is the highest tolerated cost increase versus
	// baseline. Default 0.20.
	MaxCostIncrease float64 `yaml:"max_cost_increase" json:"max_cost_increase"`

	// MinSamples is the smallest window the gates will judge.
	// Default 100.
	MinSamples int `yaml:"min_samples" json:"min_samples"`
}

// DefaultGateConfig returns the standard promotion thresholds.
func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		MaxErrorRate:    0.05,
		MaxDenyRate:     0.30,
		MaxCostIncrease: 0.20,
		MinSamples:      100,
	}
}

// CheckGates evaluates the promotion gates against windowed metrics.
// It is pure: no state is read or written. A nil config selects the
// defaults. Returns whether all gates passed and the reasons for each
// failure.
func CheckGates(m GateMetrics, cfg *GateConfig) (bool, []string) {
	if cfg == nil {
		cfg = DefaultGateConfig()
	}

	reasons := []string{}
	if m.Samples < cfg.MinSamples {
		reasons = append(reasons, fmt.Sprintf("insufficient samples: %d < %d", m.Samples, cfg.MinSamples))
	}
	if m.ErrorRate > cfg.MaxErrorRate {
		reasons = append(reasons, fmt.Sprintf("error rate %.1f%% exceeds %.1f%%", m.ErrorRate*100, cfg.MaxErrorRate*100))
	}
	if m.DenyRate > cfg.MaxDenyRate {
		reasons = append(reasons, fmt.Sprintf("deny rate %.1f%% exceeds %.1f%%", m.DenyRate*100, cfg.MaxDenyRate*100))
	}
	if m.CostIncrease > cfg.MaxCostIncrease {
		reasons = append(reasons, fmt.Sprintf("cost increase %.1f%% exceeds %.1f%%", m.CostIncrease*100, cfg.MaxCostIncrease*100))
	}
	return len(reasons) == 0, reasons
}
