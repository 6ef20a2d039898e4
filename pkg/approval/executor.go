package approval

import (
	"context"

	"steward-hq/steward/pkg/policy"
)

// Executor carries out an approved action against the mailbox. The
// lifecycle guarantees at most one invocation per proposal via the
// status guard, so implementations need not deduplicate.
type Executor interface {
	Execute(ctx context.Context, action policy.ActionType, params map[string]string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, action policy.ActionType, params map[string]string) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, action policy.ActionType, params map[string]string) error {
	return f(ctx, action, params)
}
