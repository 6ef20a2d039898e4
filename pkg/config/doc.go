// Package config loads, defaults, and validates Steward configuration.
//
// Configuration is read from a YAML file, filled in with defaults via
// ApplyDefaults, and optionally overridden by STEWARD_SECTION_FIELD
// environment variables. Validate reports every invalid field at once
// so a broken file can be fixed in a single pass.
//
// Sections map to the major subsystems: storage (SQLite or in-memory
// backends), policy (rule file source), approval (lifecycle timeouts),
// rollout (canary percentages and promotion gates), detector (regression
// thresholds and schedule), and telemetry (metrics endpoint).
//
// A process-wide singleton is available through Initialize and GetConfig
// for the CLI entry points; library code receives explicit Config values
// instead.
package config
