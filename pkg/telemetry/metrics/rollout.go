package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RolloutMetrics tracks bundle rollout and the regression detector.
//
// Metrics:
//   - steward_core_bundle_activations_total: bundle activations, by version
//   - steward_core_bundle_promotions_total: canary promotions
//   - steward_core_bundle_rollbacks_total: rollbacks, by trigger
//   - steward_core_canary_pct: current canary traffic percentage
//   - steward_core_kill_switch: 1 when the kill switch is engaged
//   - steward_core_regression_breaches_total: detector breaches, by metric
type RolloutMetrics struct {
	activationsTotal *prometheus.CounterVec
	promotionsTotal  prometheus.Counter
	rollbacksTotal   *prometheus.CounterVec
	canaryPct        prometheus.Gauge
	killSwitch       prometheus.Gauge
	breachesTotal    *prometheus.CounterVec
}

// NewRolloutMetrics creates and registers the rollout metrics group.
func NewRolloutMetrics(cfg *Config, registry *prometheus.Registry) *RolloutMetrics {
	rm := &RolloutMetrics{
		activationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bundle_activations_total",
				Help:      "Total number of bundle activations, by version",
			},
			[]string{"version"},
		),

		promotionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bundle_promotions_total",
				Help:      "Total number of canary percentage promotions",
			},
		),

		rollbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bundle_rollbacks_total",
				Help:      "Total number of rollbacks, by trigger (manual, regression)",
			},
			[]string{"trigger"},
		),

		canaryPct: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "canary_pct",
				Help:      "Current canary traffic percentage from runtime settings",
			},
		),

		killSwitch: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "kill_switch",
				Help:      "1 when the kill switch is engaged, 0 otherwise",
			},
		),

		breachesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "regression_breaches_total",
				Help:      "Total number of regression breaches detected, by metric",
			},
			[]string{"metric"},
		),
	}

	registry.MustRegister(
		rm.activationsTotal,
		rm.promotionsTotal,
		rm.rollbacksTotal,
		rm.canaryPct,
		rm.killSwitch,
		rm.breachesTotal,
	)

	return rm
}

// RecordActivation records a bundle activation.
func (rm *RolloutMetrics) RecordActivation(version string) {
	rm.activationsTotal.WithLabelValues(version).Inc()
}

// RecordPromotion records a canary percentage increase.
func (rm *RolloutMetrics) RecordPromotion() {
	rm.promotionsTotal.Inc()
}

// RecordRollback records a rollback with its trigger.
func (rm *RolloutMetrics) RecordRollback(trigger string) {
	rm.rollbacksTotal.WithLabelValues(trigger).Inc()
}

// SetRuntimeState mirrors the runtime settings into gauges.
func (rm *RolloutMetrics) SetRuntimeState(canaryPct float64, killSwitch bool) {
	rm.canaryPct.Set(canaryPct)
	if killSwitch {
		rm.killSwitch.Set(1)
	} else {
		rm.killSwitch.Set(0)
	}
}

// RecordBreach records a detector breach for one metric ("quality",
// "latency", "cost").
func (rm *RolloutMetrics) RecordBreach(metric string) {
	rm.breachesTotal.WithLabelValues(metric).Inc()
}
