package rollout

import (
	"context"
	"log/slog"
)

// Incident severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Incident is a structured event handed to an external incident or
// notification system.
type Incident struct {
	Title    string            `json:"title"`
	Severity string            `json:"severity"`
	Context  map[string]string `json:"context,omitempty"`
}

// IncidentSink receives incidents. Emission failures are the sink's
// problem; callers log and move on, a rollback must never be blocked
// by a notification outage.
type IncidentSink interface {
	Emit(ctx context.Context, incident *Incident) error
}

// LogSink is an IncidentSink that writes incidents to the log. It is
// the default sink when no external system is wired.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logging incident sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "rollout.incidents")}
}

// Emit implements IncidentSink.
func (s *LogSink) Emit(ctx context.Context, incident *Incident) error {
	attrs := []interface{}{
		"title", incident.Title,
		"severity", incident.Severity,
	}
	for k, v := range incident.Context {
		attrs = append(attrs, k, v)
	}
	s.logger.Warn("incident", attrs...)
	return nil
}
