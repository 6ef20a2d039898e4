// Package metrics provides Prometheus metrics collection for Steward.
//
// # Overview
//
// The metrics package implements Prometheus instrumentation for the rule
// pipeline: policy firing, proposal decisions, action execution, bundle
// rollouts, and the regression detector.
//
// # Metrics Groups
//
//   - Proposal Metrics: policy fires, decisions, confidence, executions
//   - Rollout Metrics: activations, promotions, rollbacks, runtime state
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.DefaultConfig(), nil)
//	collector.Proposal().RecordFired("expired-promos", policy.ActionArchive, 0.92)
//	http.Handle("/metrics", collector.Handler())
//
// All metrics are registered on the collector's registry, so multiple
// collectors can coexist in tests without duplicate-registration panics.
package metrics
