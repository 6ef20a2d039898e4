package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults,
// and validates the result. Environment variables are not consulted;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention STEWARD_SECTION_FIELD (e.g. STEWARD_STORAGE_BACKEND) and
// always take precedence over file values.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies STEWARD_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	setString("STEWARD_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("STEWARD_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("STEWARD_LOGGING_ADD_SOURCE", &cfg.Logging.AddSource)

	setString("STEWARD_STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("STEWARD_STORAGE_DIR", &cfg.Storage.Dir)
	setString("STEWARD_STORAGE_PROPOSAL_PATH", &cfg.Storage.ProposalPath)
	setString("STEWARD_STORAGE_POLICY_PATH", &cfg.Storage.PolicyPath)
	setString("STEWARD_STORAGE_SETTINGS_PATH", &cfg.Storage.SettingsPath)
	setString("STEWARD_STORAGE_BUNDLE_PATH", &cfg.Storage.BundlePath)
	setString("STEWARD_STORAGE_AUDIT_PATH", &cfg.Storage.AuditPath)

	setString("STEWARD_POLICY_DIR", &cfg.Policy.Dir)
	setBool("STEWARD_POLICY_WATCH", &cfg.Policy.Watch)

	setDuration("STEWARD_APPROVAL_EXEC_TIMEOUT", &cfg.Approval.ExecTimeout)

	setFloat("STEWARD_ROLLOUT_DEFAULT_CANARY_PCT", &cfg.Rollout.DefaultCanaryPct)
	setDuration("STEWARD_ROLLOUT_MIN_SOAK_TIME", &cfg.Rollout.MinSoakTime)
	setFloat("STEWARD_ROLLOUT_MAX_ERROR_RATE", &cfg.Rollout.Gates.MaxErrorRate)
	setFloat("STEWARD_ROLLOUT_MAX_DENY_RATE", &cfg.Rollout.Gates.MaxDenyRate)
	setFloat("STEWARD_ROLLOUT_MAX_COST_INCREASE", &cfg.Rollout.Gates.MaxCostIncrease)
	setInt("STEWARD_ROLLOUT_MIN_SAMPLES", &cfg.Rollout.Gates.MinSamples)

	setString("STEWARD_DETECTOR_SCHEDULE", &cfg.Detector.Schedule)
	setString("STEWARD_DETECTOR_STATS_PATH", &cfg.Detector.StatsPath)
	setInt("STEWARD_DETECTOR_WINDOW_RUNS", &cfg.Detector.WindowRuns)
	setInt("STEWARD_DETECTOR_MIN_CANARY_SAMPLES", &cfg.Detector.MinCanarySamples)
	setFloat("STEWARD_DETECTOR_MAX_QUALITY_DROP", &cfg.Detector.MaxQualityDrop)
	setFloat("STEWARD_DETECTOR_MAX_LATENCY_P95_MS", &cfg.Detector.MaxLatencyP95Ms)
	setFloat("STEWARD_DETECTOR_MAX_COST_CENTS", &cfg.Detector.MaxCostCents)

	setString("STEWARD_TELEMETRY_LISTEN_ADDRESS", &cfg.Telemetry.ListenAddress)
	setString("STEWARD_TELEMETRY_NAMESPACE", &cfg.Telemetry.Namespace)
	setDuration("STEWARD_TELEMETRY_READ_TIMEOUT", &cfg.Telemetry.ReadTimeout)
	setDuration("STEWARD_TELEMETRY_WRITE_TIMEOUT", &cfg.Telemetry.WriteTimeout)
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			*dst = b
		}
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
