package regression

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the detector on a cron schedule.
type Scheduler struct {
	detector *Detector
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler. Common schedules:
//
//	"@every 5m"  - every five minutes
//	"*/10 * * * *" - every ten minutes
func NewScheduler(detector *Detector, schedule string) *Scheduler {
	return &Scheduler{
		detector: detector,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "regression.scheduler"),
	}
}

// Start begins periodic evaluation. An empty schedule disables the
// scheduler. The scheduler stops itself when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("detector schedule not configured, skipping scheduler")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runEvaluation(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid detector schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("regression scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runEvaluation(ctx context.Context) {
	result := s.detector.Evaluate(ctx, 0)
	switch result.Action {
	case ActionRollback:
		s.logger.Warn("scheduled evaluation rolled back the canary",
			"breaches", result.Breaches,
		)
	case ActionOK:
		s.logger.Debug("scheduled evaluation passed")
	default:
		s.logger.Debug("scheduled evaluation declined", "reason", result.Reason)
	}
}

// Stop stops the scheduler and waits for a running evaluation to
// finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("regression scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
