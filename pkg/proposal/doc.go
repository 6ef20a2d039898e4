// Package proposal implements the proposal pipeline: flattening mail
// records into evaluation contexts, matching them against policies in
// priority order, and emitting confidence-scored action proposals for
// human review.
//
// The Engine is pure: it never writes. Persistence lives in Store
// (memory and SQLite backends), and the lifecycle transition guard in
// Store.Transition is what the approval layer builds on. Per-user
// personalization comes from Weights, an LRU-bounded map of online
// learned feature weights fed by review decisions.
package proposal
