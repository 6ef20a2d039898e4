package config

import (
	"path/filepath"
	"time"
)

// Default values applied by ApplyDefaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultStorageBackend = "sqlite"
	DefaultStorageDir     = "./data"

	DefaultPolicyDir = "./policies"

	DefaultExecTimeout = 30 * time.Second

	DefaultCanaryPct   = 10.0
	DefaultMinSoakTime = 24 * time.Hour

	DefaultMaxErrorRate    = 0.05
	DefaultMaxDenyRate     = 0.30
	DefaultMaxCostIncrease = 0.20
	DefaultMinSamples      = 100

	DefaultDetectorSchedule = "*/5 * * * *"
	DefaultWindowRuns       = 100
	DefaultMinCanarySamples = 30
	DefaultMaxQualityDrop   = 5.0
	DefaultMaxLatencyP95Ms  = 1600.0
	DefaultMaxCostCents     = 3.0

	DefaultTelemetryAddress      = "127.0.0.1:9090"
	DefaultTelemetryNamespace    = "steward"
	DefaultTelemetryReadTimeout  = 5 * time.Second
	DefaultTelemetryWriteTimeout = 10 * time.Second
)

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = DefaultStorageDir
	}
	if cfg.Storage.ProposalPath == "" {
		cfg.Storage.ProposalPath = filepath.Join(cfg.Storage.Dir, "proposals.db")
	}
	if cfg.Storage.PolicyPath == "" {
		cfg.Storage.PolicyPath = filepath.Join(cfg.Storage.Dir, "policies.db")
	}
	if cfg.Storage.SettingsPath == "" {
		cfg.Storage.SettingsPath = filepath.Join(cfg.Storage.Dir, "settings.db")
	}
	if cfg.Storage.BundlePath == "" {
		cfg.Storage.BundlePath = filepath.Join(cfg.Storage.Dir, "bundles.db")
	}
	if cfg.Storage.AuditPath == "" {
		cfg.Storage.AuditPath = filepath.Join(cfg.Storage.Dir, "audit.db")
	}

	if cfg.Policy.Dir == "" {
		cfg.Policy.Dir = DefaultPolicyDir
	}

	if cfg.Approval.ExecTimeout <= 0 {
		cfg.Approval.ExecTimeout = DefaultExecTimeout
	}

	if cfg.Rollout.DefaultCanaryPct == 0 {
		cfg.Rollout.DefaultCanaryPct = DefaultCanaryPct
	}
	if cfg.Rollout.MinSoakTime <= 0 {
		cfg.Rollout.MinSoakTime = DefaultMinSoakTime
	}
	if cfg.Rollout.Gates.MaxErrorRate == 0 {
		cfg.Rollout.Gates.MaxErrorRate = DefaultMaxErrorRate
	}
	if cfg.Rollout.Gates.MaxDenyRate == 0 {
		cfg.Rollout.Gates.MaxDenyRate = DefaultMaxDenyRate
	}
	if cfg.Rollout.Gates.MaxCostIncrease == 0 {
		cfg.Rollout.Gates.MaxCostIncrease = DefaultMaxCostIncrease
	}
	if cfg.Rollout.Gates.MinSamples == 0 {
		cfg.Rollout.Gates.MinSamples = DefaultMinSamples
	}

	if cfg.Detector.Schedule == "" {
		cfg.Detector.Schedule = DefaultDetectorSchedule
	}
	if cfg.Detector.StatsPath == "" {
		cfg.Detector.StatsPath = filepath.Join(cfg.Storage.Dir, "window_stats.json")
	}
	if cfg.Detector.WindowRuns == 0 {
		cfg.Detector.WindowRuns = DefaultWindowRuns
	}
	if cfg.Detector.MinCanarySamples == 0 {
		cfg.Detector.MinCanarySamples = DefaultMinCanarySamples
	}
	if cfg.Detector.MaxQualityDrop == 0 {
		cfg.Detector.MaxQualityDrop = DefaultMaxQualityDrop
	}
	if cfg.Detector.MaxLatencyP95Ms == 0 {
		cfg.Detector.MaxLatencyP95Ms = DefaultMaxLatencyP95Ms
	}
	if cfg.Detector.MaxCostCents == 0 {
		cfg.Detector.MaxCostCents = DefaultMaxCostCents
	}

	if cfg.Telemetry.ListenAddress == "" {
		cfg.Telemetry.ListenAddress = DefaultTelemetryAddress
	}
	if cfg.Telemetry.Namespace == "" {
		cfg.Telemetry.Namespace = DefaultTelemetryNamespace
	}
	if cfg.Telemetry.ReadTimeout <= 0 {
		cfg.Telemetry.ReadTimeout = DefaultTelemetryReadTimeout
	}
	if cfg.Telemetry.WriteTimeout <= 0 {
		cfg.Telemetry.WriteTimeout = DefaultTelemetryWriteTimeout
	}
}

// NewDefaultConfig returns a configuration with every field defaulted.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
