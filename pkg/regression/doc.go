// Package regression watches canary quality and pulls the emergency
// brake. The Detector compares windowed canary aggregates against the
// promoted baseline; any breach throws the kill switch and zeroes
// canary traffic through the settings store, the fast synchronous
// half of a rollback. Reactivating a prior bundle is the rollout
// controller's job.
//
// Evaluation is deliberately conservative: too few canary samples or
// an unreadable metrics store means no judgment, never a rollback on
// missing data.
package regression
