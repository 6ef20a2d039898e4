// Package approval implements the review state machine over
// proposals: pending -> approved -> executed/failed, or pending ->
// rejected.
//
// Every decision writes one audit action and updates the originating
// policy's precision stats and the reviewer's learned weights. The
// executor runs at most once per proposal; the at-most-once guarantee
// comes from the store's check-then-set transition, not from the
// executor itself.
package approval
