package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "sqlite")
	}
	if want := filepath.Join("./data", "proposals.db"); cfg.Storage.ProposalPath != want {
		t.Errorf("Storage.ProposalPath = %q, want %q", cfg.Storage.ProposalPath, want)
	}
	if cfg.Rollout.DefaultCanaryPct != 10.0 {
		t.Errorf("Rollout.DefaultCanaryPct = %v, want 10", cfg.Rollout.DefaultCanaryPct)
	}
	if cfg.Rollout.MinSoakTime != 24*time.Hour {
		t.Errorf("Rollout.MinSoakTime = %v, want 24h", cfg.Rollout.MinSoakTime)
	}
	if cfg.Rollout.Gates.MinSamples != 100 {
		t.Errorf("Rollout.Gates.MinSamples = %d, want 100", cfg.Rollout.Gates.MinSamples)
	}
	if cfg.Detector.MaxLatencyP95Ms != 1600.0 {
		t.Errorf("Detector.MaxLatencyP95Ms = %v, want 1600", cfg.Detector.MaxLatencyP95Ms)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: "memory", Dir: "/var/lib/steward"},
		Rollout: RolloutConfig{DefaultCanaryPct: 25},
	}
	ApplyDefaults(cfg)

	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "memory")
	}
	if want := filepath.Join("/var/lib/steward", "settings.db"); cfg.Storage.SettingsPath != want {
		t.Errorf("Storage.SettingsPath = %q, want %q", cfg.Storage.SettingsPath, want)
	}
	if cfg.Rollout.DefaultCanaryPct != 25 {
		t.Errorf("Rollout.DefaultCanaryPct = %v, want 25", cfg.Rollout.DefaultCanaryPct)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(cfg *Config) {}, ""},
		{"bad backend", func(cfg *Config) { cfg.Storage.Backend = "postgres" }, "storage.backend"},
		{"bad log level", func(cfg *Config) { cfg.Logging.Level = "loud" }, "logging.level"},
		{"canary pct over 100", func(cfg *Config) { cfg.Rollout.DefaultCanaryPct = 150 }, "rollout.default_canary_pct"},
		{"error rate over 1", func(cfg *Config) { cfg.Rollout.Gates.MaxErrorRate = 1.5 }, "rollout.gates.max_error_rate"},
		{"zero window", func(cfg *Config) { cfg.Detector.WindowRuns = -1 }, "detector.window_runs"},
		{"empty policy dir", func(cfg *Config) { cfg.Policy.Dir = "" }, "policy.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Backend = "postgres"
	cfg.Detector.WindowRuns = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil, want error")
	}
	var verrs ValidationErrors
	ok := false
	if verrs, ok = err.(ValidationErrors); !ok {
		t.Fatalf("Validate() error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("len(errors) = %d, want 2", len(verrs))
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")
	content := `
logging:
  level: debug
storage:
  backend: memory
rollout:
  default_canary_pct: 5
  gates:
    min_samples: 50
detector:
  schedule: "@every 10m"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "memory")
	}
	if cfg.Rollout.DefaultCanaryPct != 5 {
		t.Errorf("Rollout.DefaultCanaryPct = %v, want 5", cfg.Rollout.DefaultCanaryPct)
	}
	if cfg.Rollout.Gates.MinSamples != 50 {
		t.Errorf("Rollout.Gates.MinSamples = %d, want 50", cfg.Rollout.Gates.MinSamples)
	}
	if cfg.Detector.Schedule != "@every 10m" {
		t.Errorf("Detector.Schedule = %q, want %q", cfg.Detector.Schedule, "@every 10m")
	}
	// Unset fields still get defaults.
	if cfg.Approval.ExecTimeout != 30*time.Second {
		t.Errorf("Approval.ExecTimeout = %v, want 30s", cfg.Approval.ExecTimeout)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() with missing file did not fail")
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: oracle\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() with invalid backend did not fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: sqlite\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("STEWARD_STORAGE_BACKEND", "memory")
	t.Setenv("STEWARD_ROLLOUT_MIN_SOAK_TIME", "48h")
	t.Setenv("STEWARD_DETECTOR_MIN_CANARY_SAMPLES", "60")
	t.Setenv("STEWARD_LOGGING_ADD_SOURCE", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "memory")
	}
	if cfg.Rollout.MinSoakTime != 48*time.Hour {
		t.Errorf("Rollout.MinSoakTime = %v, want 48h", cfg.Rollout.MinSoakTime)
	}
	if cfg.Detector.MinCanarySamples != 60 {
		t.Errorf("Detector.MinCanarySamples = %d, want 60", cfg.Detector.MinCanarySamples)
	}
	if !cfg.Logging.AddSource {
		t.Error("Logging.AddSource = false, want true")
	}
}

func TestEnvOverridesRevalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("STEWARD_STORAGE_BACKEND", "oracle")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("LoadConfigWithEnvOverrides() with invalid override did not fail")
	}
}

func TestSingletonSetAndGet(t *testing.T) {
	orig := GetConfig()
	defer SetConfig(orig)

	cfg := NewDefaultConfig()
	SetConfig(cfg)
	if got := GetConfig(); got != cfg {
		t.Error("GetConfig() did not return the config passed to SetConfig()")
	}
}
