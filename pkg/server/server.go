// Package server provides the telemetry HTTP server for the steward daemon.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"steward-hq/steward/pkg/config"
	"steward-hq/steward/pkg/telemetry/health"
)

const defaultShutdownTimeout = 10 * time.Second

// Server exposes metrics, health, and version endpoints over HTTP. It
// carries no domain traffic; the rollout and approval surfaces are
// driven through the CLI and library APIs.
type Server struct {
	config       config.TelemetryConfig
	metrics      http.Handler
	checker      *health.Checker
	version      health.VersionInfo
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a telemetry server. The metrics handler is typically the
// Prometheus handler from the metrics collector; checker may carry
// storage and policy source checks.
func New(cfg config.TelemetryConfig, metricsHandler http.Handler, checker *health.Checker, version health.VersionInfo, logger *slog.Logger) *Server {
	if checker == nil {
		checker = health.New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		metrics: metricsHandler,
		checker: checker,
		version: version,
		logger:  logger.With("component", "telemetry-server"),
	}
}

// Start starts the HTTP server and blocks until the context is canceled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting telemetry server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("telemetry server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("telemetry server stopped")
	})

	return shutdownErr
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/health", s.checker.LivenessHandler())
	mux.HandleFunc("/ready", s.checker.ReadinessHandler())
	mux.HandleFunc("/version", health.VersionHandler(s.version.Version, s.version.Commit, s.version.BuildTime))

	return mux
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
