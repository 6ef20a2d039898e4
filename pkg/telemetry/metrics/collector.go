package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in Steward.
// It owns the registry and the per-concern metric groups.
type Collector struct {
	registry *prometheus.Registry

	// Proposal pipeline metrics
	proposalMetrics *ProposalMetrics

	// Rollout / canary lifecycle metrics
	rolloutMetrics *RolloutMetrics
}

// Config controls metric naming.
type Config struct {
	// Namespace for all metric names. Default: "steward".
	Namespace string

	// Subsystem for all metric names. Default: "core".
	Subsystem string
}

// DefaultConfig returns the default metric naming configuration.
func DefaultConfig() *Config {
	return &Config{Namespace: "steward", Subsystem: "core"}
}

// NewCollector creates a collector with all metric groups registered. If
// registry is nil a fresh registry is used, which keeps tests isolated
// from the process-global default registry.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "steward"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "core"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		registry:        registry,
		proposalMetrics: NewProposalMetrics(cfg, registry),
		rolloutMetrics:  NewRolloutMetrics(cfg, registry),
	}
}

// Proposal returns the proposal pipeline metrics group.
func (c *Collector) Proposal() *ProposalMetrics { return c.proposalMetrics }

// Rollout returns the rollout lifecycle metrics group.
func (c *Collector) Rollout() *RolloutMetrics { return c.rolloutMetrics }

// Registry exposes the underlying registry for handler wiring.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }
