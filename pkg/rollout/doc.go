// Package rollout manages versioned policy bundles and their canary
// lifecycle: draft, activate at partial traffic, promote in strictly
// increasing steps, roll back to the previous version.
//
// The exactly-one-active invariant lives in the Store: activation is
// an atomic swap, so concurrent activate and rollback calls serialize
// and no reader ever observes two active bundles. Promotion gates
// (CheckGates) are a pure function over windowed metrics, separated
// from the promotion mechanism so callers decide and then act.
// A fixed 24h soak window gates promotion eligibility independently
// of metric gates.
package rollout
