package config

import "time"

// Config is the root configuration for the Steward daemon and CLI.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Policy    PolicyConfig    `yaml:"policy"`
	Approval  ApprovalConfig  `yaml:"approval"`
	Rollout   RolloutConfig   `yaml:"rollout"`
	Detector  DetectorConfig  `yaml:"detector"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	AddSource bool `yaml:"add_source"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Dir is the base directory for SQLite database files. Per-store
	// paths default to files inside this directory.
	Dir string `yaml:"dir"`

	// ProposalPath overrides the proposal database location.
	ProposalPath string `yaml:"proposal_path"`

	// PolicyPath overrides the policy database location.
	PolicyPath string `yaml:"policy_path"`

	// SettingsPath overrides the runtime settings database location.
	SettingsPath string `yaml:"settings_path"`

	// BundlePath overrides the policy bundle database location.
	BundlePath string `yaml:"bundle_path"`

	// AuditPath overrides the audit trail database location.
	AuditPath string `yaml:"audit_path"`
}

// PolicyConfig locates the policy rule files.
type PolicyConfig struct {
	// Dir is the directory containing policy YAML files.
	Dir string `yaml:"dir"`

	// Watch reloads policies when the directory changes.
	Watch bool `yaml:"watch"`
}

// ApprovalConfig tunes the approval lifecycle.
type ApprovalConfig struct {
	// ExecTimeout bounds a single action execution during approval.
	ExecTimeout time.Duration `yaml:"exec_timeout"`
}

// RolloutConfig tunes canary rollout of policy bundles.
type RolloutConfig struct {
	// DefaultCanaryPct is the canary percentage applied when an
	// activation does not specify one.
	DefaultCanaryPct float64 `yaml:"default_canary_pct"`

	// MinSoakTime is how long a bundle must stay active before it is
	// eligible for promotion.
	MinSoakTime time.Duration `yaml:"min_soak_time"`

	// Gates are the health thresholds checked before promotion.
	Gates GatesConfig `yaml:"gates"`
}

// GatesConfig holds promotion gate thresholds.
type GatesConfig struct {
	MaxErrorRate    float64 `yaml:"max_error_rate"`
	MaxDenyRate     float64 `yaml:"max_deny_rate"`
	MaxCostIncrease float64 `yaml:"max_cost_increase"`
	MinSamples      int     `yaml:"min_samples"`
}

// DetectorConfig tunes the automatic regression detector.
type DetectorConfig struct {
	// Schedule is a cron expression for periodic evaluation. Empty
	// disables the scheduler.
	Schedule string `yaml:"schedule"`

	// StatsPath is the JSON file holding baseline and canary windows,
	// written by offline evaluation jobs.
	StatsPath string `yaml:"stats_path"`

	// WindowRuns is how many recent runs each comparison window holds.
	WindowRuns int `yaml:"window_runs"`

	// MinCanarySamples is the minimum canary window size before the
	// detector will act.
	MinCanarySamples int `yaml:"min_canary_samples"`

	// MaxQualityDrop is the largest tolerated quality score drop
	// relative to the baseline window.
	MaxQualityDrop float64 `yaml:"max_quality_drop"`

	// MaxLatencyP95Ms is the canary p95 latency ceiling in milliseconds.
	MaxLatencyP95Ms float64 `yaml:"max_latency_p95_ms"`

	// MaxCostCents is the canary per-run cost ceiling in cents.
	MaxCostCents float64 `yaml:"max_cost_cents"`
}

// TelemetryConfig controls the metrics and health endpoint.
type TelemetryConfig struct {
	// ListenAddress is the address for the telemetry HTTP server.
	ListenAddress string `yaml:"listen_address"`

	// Namespace prefixes all exported metric names.
	Namespace string `yaml:"namespace"`

	// ReadTimeout and WriteTimeout bound telemetry HTTP requests.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}
