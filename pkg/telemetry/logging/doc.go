// Package logging configures structured logging for Steward.
//
// Setup builds a slog.Logger from a small configuration (level, format,
// optional source locations) and installs it as the process default so
// packages that log through slog.Default pick it up. Component derives
// child loggers tagged with a component name, which is how the rest of
// the codebase scopes its log output:
//
//	logger, err := logging.Setup(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//		return err
//	}
//	engineLog := logging.Component(logger, "proposal-engine")
//
// ContextWithLogger and FromContext carry a request-scoped logger through
// call chains that only have a context.Context.
package logging
