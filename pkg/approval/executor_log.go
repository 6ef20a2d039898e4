package approval

import (
	"context"
	"log/slog"

	"steward-hq/steward/pkg/policy"
)

// NewLogExecutor returns an executor that records approved actions in
// the log without touching a mailbox. It stands in for a real mail
// backend during dry runs and local development.
func NewLogExecutor(logger *slog.Logger) Executor {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "log-executor")

	return ExecutorFunc(func(ctx context.Context, action policy.ActionType, params map[string]string) error {
		log.Info("executing action", "action", string(action), "params", params)
		return nil
	})
}
