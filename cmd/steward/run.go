package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"steward-hq/steward/pkg/cli"
	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/regression"
	"steward-hq/steward/pkg/rollout"
	"steward-hq/steward/pkg/server"
	"steward-hq/steward/pkg/telemetry/health"
	"steward-hq/steward/pkg/telemetry/logging"
	"steward-hq/steward/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Steward daemon",
	Long: `Start the Steward daemon with the specified configuration.

The daemon syncs policy files into the store, runs the regression
detector on its schedule, and serves metrics and health endpoints.
Proposals, approvals, and rollout operations are driven through the
other subcommands against the same storage.

Examples:
  # Start with default config
  steward run

  # Start with custom config
  steward run --config /etc/steward/config.yaml

  # Validate config without starting the daemon
  steward run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override telemetry listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if runFlags.listenAddress != "" {
		cfg.Telemetry.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Steward v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	st, err := openStores(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer st.Close()
	fmt.Println("✓ Storage initialized")

	ctx := cli.SetupSignalHandler()

	// Sync policy files into the store, then watch for edits.
	source := policy.NewFileSource(cfg.Policy.Dir, logger)
	if err := source.Sync(ctx, st.policies); err != nil {
		logger.Warn("initial policy sync failed", "dir", cfg.Policy.Dir, "error", err)
	} else {
		fmt.Printf("✓ Policies synced from %s\n", cfg.Policy.Dir)
	}
	if cfg.Policy.Watch {
		go func() {
			if err := source.Watch(ctx, func() error {
				return source.Sync(ctx, st.policies)
			}); err != nil {
				logger.Error("policy watcher stopped", "error", err)
			}
		}()
	}

	collector := metrics.NewCollector(&metrics.Config{Namespace: cfg.Telemetry.Namespace}, nil)

	incidents := rollout.NewLogSink(logger)
	detector, err := regression.NewDetector(
		regression.NewFileMetricsStore(cfg.Detector.StatsPath),
		st.settings,
		incidents,
		&regression.Config{
			MinCanarySamples: cfg.Detector.MinCanarySamples,
			MaxQualityDrop:   cfg.Detector.MaxQualityDrop,
			MaxLatencyP95Ms:  cfg.Detector.MaxLatencyP95Ms,
			MaxCostCents:     cfg.Detector.MaxCostCents,
			WindowRuns:       cfg.Detector.WindowRuns,
		},
		logger,
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	scheduler := regression.NewScheduler(detector, cfg.Detector.Schedule)
	if err := scheduler.Start(ctx); err != nil {
		logger.Warn("failed to start detector scheduler", "error", err)
	} else if scheduler.IsRunning() {
		defer scheduler.Stop()
		fmt.Printf("✓ Regression detector scheduled (%s)\n", cfg.Detector.Schedule)
	}

	// Mirror runtime settings into the rollout gauges.
	go watchRuntimeState(ctx, st, collector, logger)

	checker := health.New(0)
	checker.RegisterCheck("settings", func(ctx context.Context) error {
		_, err := st.settings.Get(ctx)
		return err
	})
	checker.RegisterCheck("bundles", func(ctx context.Context) error {
		_, err := st.bundles.GetActive(ctx)
		return err
	})
	checker.RegisterCheck("proposals", func(ctx context.Context) error {
		_, err := st.proposals.List(ctx, nil)
		return err
	})
	checker.RegisterCheck("policies", func(ctx context.Context) error {
		_, err := st.policies.List(ctx)
		return err
	})

	srv := server.New(cfg.Telemetry, collector.Handler(), checker, health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	}, logger)

	fmt.Printf("✓ Telemetry listening on %s\n", cfg.Telemetry.ListenAddress)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Daemon stopped")
	return nil
}

// watchRuntimeState keeps the canary and kill switch gauges in sync
// with the settings store.
func watchRuntimeState(ctx context.Context, st *stores, collector *metrics.Collector, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	refresh := func() {
		s, err := st.settings.Get(ctx)
		if err != nil {
			logger.Warn("failed to read runtime settings", "error", err)
			return
		}
		collector.Rollout().SetRuntimeState(s.CanaryPct, s.KillSwitch)
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
