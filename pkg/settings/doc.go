// Package settings holds the singleton runtime control row: canary
// traffic percentage, the kill switch, and feature flags.
//
// The row is written by several independent callers (the regression
// detector, the rollout controller, operators), so all writes go
// through Store.Update, a read-modify-write under the store's lock or
// transaction. The kill switch is sticky: automated writers only ever
// set it, clearing it is an explicit operator action.
package settings
