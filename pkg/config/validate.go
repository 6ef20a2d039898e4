package config

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all validation failures for one Config.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns all problems found.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		add("logging.format", "unknown format %q", cfg.Logging.Format)
	}

	switch cfg.Storage.Backend {
	case "sqlite", "memory":
	default:
		add("storage.backend", "must be \"sqlite\" or \"memory\", got %q", cfg.Storage.Backend)
	}

	if cfg.Policy.Dir == "" {
		add("policy.dir", "must not be empty")
	}

	if cfg.Approval.ExecTimeout <= 0 {
		add("approval.exec_timeout", "must be positive, got %s", cfg.Approval.ExecTimeout)
	}

	if cfg.Rollout.DefaultCanaryPct <= 0 || cfg.Rollout.DefaultCanaryPct > 100 {
		add("rollout.default_canary_pct", "must be in (0, 100], got %v", cfg.Rollout.DefaultCanaryPct)
	}
	if cfg.Rollout.MinSoakTime < 0 {
		add("rollout.min_soak_time", "must not be negative, got %s", cfg.Rollout.MinSoakTime)
	}
	if cfg.Rollout.Gates.MaxErrorRate < 0 || cfg.Rollout.Gates.MaxErrorRate > 1 {
		add("rollout.gates.max_error_rate", "must be in [0, 1], got %v", cfg.Rollout.Gates.MaxErrorRate)
	}
	if cfg.Rollout.Gates.MaxDenyRate < 0 || cfg.Rollout.Gates.MaxDenyRate > 1 {
		add("rollout.gates.max_deny_rate", "must be in [0, 1], got %v", cfg.Rollout.Gates.MaxDenyRate)
	}
	if cfg.Rollout.Gates.MaxCostIncrease < 0 {
		add("rollout.gates.max_cost_increase", "must not be negative, got %v", cfg.Rollout.Gates.MaxCostIncrease)
	}
	if cfg.Rollout.Gates.MinSamples < 1 {
		add("rollout.gates.min_samples", "must be at least 1, got %d", cfg.Rollout.Gates.MinSamples)
	}

	if cfg.Detector.WindowRuns < 1 {
		add("detector.window_runs", "must be at least 1, got %d", cfg.Detector.WindowRuns)
	}
	if cfg.Detector.MinCanarySamples < 1 {
		add("detector.min_canary_samples", "must be at least 1, got %d", cfg.Detector.MinCanarySamples)
	}
	if cfg.Detector.MaxQualityDrop < 0 {
		add("detector.max_quality_drop", "must not be negative, got %v", cfg.Detector.MaxQualityDrop)
	}
	if cfg.Detector.MaxLatencyP95Ms <= 0 {
		add("detector.max_latency_p95_ms", "must be positive, got %v", cfg.Detector.MaxLatencyP95Ms)
	}
	if cfg.Detector.MaxCostCents <= 0 {
		add("detector.max_cost_cents", "must be positive, got %v", cfg.Detector.MaxCostCents)
	}

	if cfg.Telemetry.ListenAddress == "" {
		add("telemetry.listen_address", "must not be empty")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
