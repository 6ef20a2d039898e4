// Package audit provides the append-only audit trail for executed,
// failed, and declined actions.
//
// Every lifecycle transition that touches a user's mailbox writes
// exactly one Action record here, whether the underlying executor
// succeeded or not. Records are immutable once appended; the only
// deletion path is age-based retention pruning.
//
// Two backends are provided: MemoryStore for tests and development,
// and SQLiteStore (WAL mode, schema versioned) for production.
package audit
