package cli

import "fmt"

// Exit codes used by the steward binary.
const (
	// ExitOK indicates the command succeeded.
	ExitOK = 0
	// ExitError indicates a general command failure.
	ExitError = 1
	// ExitUsage indicates invalid flags or arguments.
	ExitUsage = 2
	// ExitValidation indicates policy or configuration validation failed.
	ExitValidation = 3
)

// ConfigError reports an invalid or unloadable configuration. Field
// may be empty when the whole file failed to load.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// CommandError wraps a failure from one subcommand so the top level
// can report which command failed.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
