// Package health provides liveness and readiness checks for the steward
// daemon. Components register CheckFuncs (storage backends, the policy
// source) on a Checker, which the telemetry server exposes as /health,
// /ready, and /version endpoints. Readiness runs the registered checks
// concurrently with a per-check timeout and degrades the overall status
// when any component fails.
package health
