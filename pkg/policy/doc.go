// Package policy defines Steward's automation rules and their storage.
//
// A Policy pairs a yardstick condition with an action from a closed set,
// a priority, and a confidence threshold. Policies are prioritized and
// mutually exclusive per record: the proposal engine walks them in
// ascending priority order and stops at the first match.
//
// Two Store backends are provided: an in-memory store for tests and
// ephemeral deployments, and a SQLite store for persistence. A FileSource
// additionally loads rules from YAML files and hot-reloads them on change,
// so rule sets can be managed as files under version control.
//
// Per-(policy, user) Stats track fired/approved/rejected tallies with
// derived precision. They are display and ranking signals only; rollout
// decisions are driven by the windowed metrics in pkg/regression.
package policy
