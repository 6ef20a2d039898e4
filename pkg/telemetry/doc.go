// Package telemetry groups Steward's observability packages.
//
//   - logging: structured slog setup with component-scoped loggers
//   - metrics: Prometheus collectors for the proposal pipeline and
//     bundle rollout
//   - health: liveness and readiness checks served by the telemetry
//     HTTP server
//
// There is no code at this level; import the subpackages directly.
package telemetry
