package regression

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"steward-hq/steward/pkg/rollout"
	"steward-hq/steward/pkg/settings"
)

// Action is the detector's verdict for one evaluation.
type Action string

const (
	// ActionNone means the detector declined to judge, usually for
	// lack of canary samples or unreadable metrics.
	ActionNone Action = "none"

	// ActionOK means the canary is within thresholds.
	ActionOK Action = "ok"

	// ActionRollback means at least one threshold was breached and
	// the kill switch was thrown.
	ActionRollback Action = "rollback"
)

// VersionStats are windowed aggregates for one bundle version.
type VersionStats struct {
	// Samples is the number of decisions in the window.
	Samples int `json:"samples"`

	// Quality is the mean quality score, higher is better.
	Quality float64 `json:"quality"`

	// LatencyP95Ms is the 95th-percentile decision latency.
	LatencyP95Ms float64 `json:"latency_p95_ms"`

	// CostCents is the mean cost per decision. How cost is computed
	// is the metrics store's business; the detector only compares it
	// against the threshold.
	CostCents float64 `json:"cost_cents"`
}

// WindowStats pairs the promoted version's aggregates with the
// canary's.
type WindowStats struct {
	Baseline VersionStats `json:"baseline"`
	Canary   VersionStats `json:"canary"`
}

// Result is one evaluation outcome.
type Result struct {
	Action   Action       `json:"action"`
	Reason   string       `json:"reason"`
	Breaches []string     `json:"breaches,omitempty"`
	Stats    *WindowStats `json:"stats,omitempty"`
}

// MetricsStore supplies windowed aggregates over historical decision
// records. The detector treats it as an opaque read.
type MetricsStore interface {
	WindowStats(ctx context.Context, windowRuns int) (*WindowStats, error)
}

// Config holds the detector thresholds.
type Config struct {
	// MinCanarySamples is the smallest canary window the detector
	// will judge. Default 30.
	MinCanarySamples int `yaml:"min_canary_samples"`

	// MaxQualityDrop is the largest tolerated quality decline from
	// baseline to canary, in points. Default 5.0.
	MaxQualityDrop float64 `yaml:"max_quality_drop"`

	// MaxLatencyP95Ms is the highest tolerated canary p95 latency.
	// Default 1600.
	MaxLatencyP95Ms float64 `yaml:"max_latency_p95_ms"`

	// MaxCostCents is the highest tolerated canary mean cost.
	// Default 3.0.
	MaxCostCents float64 `yaml:"max_cost_cents"`

	// WindowRuns is the default evaluation window. Default 100.
	WindowRuns int `yaml:"window_runs"`

	// ReadTimeout bounds the metrics read. Default 10s.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() *Config {
	return &Config{
		MinCanarySamples: 30,
		MaxQualityDrop:   5.0,
		MaxLatencyP95Ms:  1600,
		MaxCostCents:     3.0,
		WindowRuns:       100,
		ReadTimeout:      10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MinCanarySamples <= 0 {
		c.MinCanarySamples = d.MinCanarySamples
	}
	if c.MaxQualityDrop <= 0 {
		c.MaxQualityDrop = d.MaxQualityDrop
	}
	if c.MaxLatencyP95Ms <= 0 {
		c.MaxLatencyP95Ms = d.MaxLatencyP95Ms
	}
	if c.MaxCostCents <= 0 {
		c.MaxCostCents = d.MaxCostCents
	}
	if c.WindowRuns <= 0 {
		c.WindowRuns = d.WindowRuns
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
}

// Detector watches canary metrics and throws the kill switch when the
// canary regresses. It is safe to call on a fixed interval: after a
// rollback the canary window dries up and subsequent evaluations
// report none.
type Detector struct {
	metrics   MetricsStore
	settings  settings.Store
	incidents rollout.IncidentSink
	config    *Config
	logger    *slog.Logger
}

// NewDetector creates a detector. Metrics and Settings are required;
// a nil incidents sink defaults to logging; a nil config selects the
// defaults.
func NewDetector(metrics MetricsStore, st settings.Store, incidents rollout.IncidentSink, config *Config, logger *slog.Logger) (*Detector, error) {
	if metrics == nil {
		return nil, fmt.Errorf("metrics store is required")
	}
	if st == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if incidents == nil {
		incidents = rollout.NewLogSink(logger)
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	return &Detector{
		metrics:   metrics,
		settings:  st,
		incidents: incidents,
		config:    config,
		logger:    logger.With("component", "regression.detector"),
	}, nil
}

// Evaluate pulls windowed stats and judges the canary. windowRuns of
// zero selects the configured default. A metrics read failure or
// timeout yields none, never an error: the detector's failure mode is
// to decline judgment, not to act on bad data.
func (d *Detector) Evaluate(ctx context.Context, windowRuns int) *Result {
	if windowRuns <= 0 {
		windowRuns = d.config.WindowRuns
	}

	readCtx, cancel := context.WithTimeout(ctx, d.config.ReadTimeout)
	stats, err := d.metrics.WindowStats(readCtx, windowRuns)
	cancel()
	if err != nil {
		d.logger.Warn("metrics read failed, declining judgment", "error", err)
		return &Result{Action: ActionNone, Reason: fmt.Sprintf("metrics unavailable: %v", err)}
	}

	if stats.Canary.Samples < d.config.MinCanarySamples {
		return &Result{
			Action: ActionNone,
			Reason: fmt.Sprintf("insufficient canary samples: %d < %d", stats.Canary.Samples, d.config.MinCanarySamples),
			Stats:  stats,
		}
	}

	breaches := d.breaches(stats)
	if len(breaches) == 0 {
		return &Result{Action: ActionOK, Reason: "canary within thresholds", Stats: stats}
	}

	d.rollback(ctx, stats, breaches)
	return &Result{
		Action:   ActionRollback,
		Reason:   "canary regression detected",
		Breaches: breaches,
		Stats:    stats,
	}
}

// breaches runs the three independent threshold checks.
func (d *Detector) breaches(stats *WindowStats) []string {
	breaches := []string{}

	if drop := stats.Baseline.Quality - stats.Canary.Quality; drop > d.config.MaxQualityDrop {
		breaches = append(breaches, fmt.Sprintf("quality drop %.1f exceeds %.1f points", drop, d.config.MaxQualityDrop))
	}
	if stats.Canary.LatencyP95Ms > d.config.MaxLatencyP95Ms {
		breaches = append(breaches, fmt.Sprintf("canary p95 latency %.0fms exceeds %.0fms", stats.Canary.LatencyP95Ms, d.config.MaxLatencyP95Ms))
	}
	if stats.Canary.CostCents > d.config.MaxCostCents {
		breaches = append(breaches, fmt.Sprintf("canary cost %.2f cents exceeds %.2f", stats.Canary.CostCents, d.config.MaxCostCents))
	}
	return breaches
}

// rollback is the fast stop-the-bleeding action: throw the kill
// switch and zero the canary traffic. Reactivating a prior bundle is
// a separate, heavier operation left to the rollout controller.
func (d *Detector) rollback(ctx context.Context, stats *WindowStats, breaches []string) {
	reason := fmt.Sprintf("canary regression: %v", breaches)

	_, err := d.settings.Update(ctx, "detector", reason, func(s *settings.Settings) error {
		s.KillSwitch = true
		s.CanaryPct = 0
		return nil
	})
	if err != nil {
		d.logger.Error("failed to throw kill switch", "error", err)
	}

	d.logger.Warn("canary rolled back",
		"breaches", breaches,
		"canary_samples", stats.Canary.Samples,
	)

	incident := &rollout.Incident{
		Title:    "canary regression detected, kill switch engaged",
		Severity: rollout.SeverityHigh,
		Context: map[string]string{
			"reason":            reason,
			"canary_quality":    fmt.Sprintf("%.1f", stats.Canary.Quality),
			"baseline_quality":  fmt.Sprintf("%.1f", stats.Baseline.Quality),
			"canary_latency":    fmt.Sprintf("%.0f", stats.Canary.LatencyP95Ms),
			"canary_cost_cents": fmt.Sprintf("%.2f", stats.Canary.CostCents),
		},
	}
	if err := d.incidents.Emit(ctx, incident); err != nil {
		d.logger.Error("failed to emit regression incident", "error", err)
	}
}
