// Package cli provides shared helpers for the steward command line:
// output formatting (text, JSON, aligned tables), command and
// configuration error types with process exit codes, and signal-aware
// context setup for long-running commands.
package cli
