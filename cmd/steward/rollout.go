package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"steward-hq/steward/pkg/cli"
	"steward-hq/steward/pkg/config"
	"steward-hq/steward/pkg/rollout"
)

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Manage canary rollout of policy bundles",
}

func buildController() (*rollout.Controller, *stores, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, cli.NewConfigError("", err.Error())
	}
	st, err := openStores(cfg)
	if err != nil {
		return nil, nil, nil, cli.NewCommandError("rollout", err)
	}

	ctrl, err := rollout.NewController(rollout.ControllerConfig{
		Bundles:          st.bundles,
		Settings:         st.settings,
		DefaultCanaryPct: cfg.Rollout.DefaultCanaryPct,
		MinSoakTime:      cfg.Rollout.MinSoakTime,
	})
	if err != nil {
		st.Close()
		return nil, nil, nil, cli.NewCommandError("rollout", err)
	}
	return ctrl, st, cfg, nil
}

var rolloutCreateCmd = &cobra.Command{
	Use:   "create <version>",
	Short: "Snapshot current policies into a draft bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("rollout create", err)
		}
		defer st.Close()

		policies, err := st.policies.List(cmd.Context())
		if err != nil {
			return cli.NewCommandError("rollout create", err)
		}

		bundle, err := rollout.BuildBundle(args[0], policies, cfg.Policy.Dir)
		if err != nil {
			return cli.NewCommandError("rollout create", err)
		}
		if err := st.bundles.Create(cmd.Context(), bundle); err != nil {
			return cli.NewCommandError("rollout create", err)
		}

		fmt.Printf("✓ Bundle %s created (%s, %d policies)\n", bundle.ID, bundle.Version, len(policies))
		return nil
	},
}

var rolloutActivateFlags struct {
	approvalID string
	actor      string
	pct        float64
}

var rolloutActivateCmd = &cobra.Command{
	Use:   "activate <bundle-id>",
	Short: "Activate a bundle at a canary percentage",
	Long: `Activate a bundle, deactivating whichever bundle was active before.
Activation requires the approval ID that authorized the change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, st, _, err := buildController()
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := ctrl.Activate(cmd.Context(), args[0], rolloutActivateFlags.approvalID, rolloutActivateFlags.actor, rolloutActivateFlags.pct)
		if err != nil {
			return cli.NewCommandError("rollout activate", err)
		}

		fmt.Printf("✓ Bundle %s active at %.0f%% canary\n", b.Version, b.CanaryPct)
		return nil
	},
}

var rolloutPromoteFlags struct {
	pct float64
}

var rolloutPromoteCmd = &cobra.Command{
	Use:   "promote <bundle-id>",
	Short: "Raise the canary percentage of the active bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, st, _, err := buildController()
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := ctrl.Promote(cmd.Context(), args[0], rolloutPromoteFlags.pct)
		if err != nil {
			return cli.NewCommandError("rollout promote", err)
		}

		fmt.Printf("✓ Bundle %s promoted to %.0f%%\n", b.Version, b.CanaryPct)
		return nil
	},
}

var rolloutRollbackFlags struct {
	reason     string
	actor      string
	noIncident bool
}

var rolloutRollbackCmd = &cobra.Command{
	Use:   "rollback <bundle-id>",
	Short: "Roll back an active bundle to its predecessor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, st, _, err := buildController()
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := ctrl.Rollback(cmd.Context(), args[0], rolloutRollbackFlags.reason, rolloutRollbackFlags.actor, !rolloutRollbackFlags.noIncident)
		if err != nil {
			return cli.NewCommandError("rollout rollback", err)
		}

		fmt.Printf("✓ Rolled back to bundle %s\n", b.Version)
		return nil
	},
}

var rolloutGatesFlags struct {
	metricsPath string
}

var rolloutGatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Check promotion gates against windowed canary metrics",
	Long: `Evaluate the configured promotion gates against a canary metrics
window. The window is read as JSON from --metrics (error_rate,
deny_rate, cost_increase, samples), typically produced by an offline
evaluation job. Gates are advisory: promote never checks them
implicitly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}

		data, err := os.ReadFile(rolloutGatesFlags.metricsPath)
		if err != nil {
			return cli.NewCommandError("rollout gates", err)
		}
		var m rollout.GateMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return cli.NewCommandError("rollout gates", fmt.Errorf("parsing gate metrics: %w", err))
		}

		passed, reasons := rollout.CheckGates(m, &rollout.GateConfig{
			MaxErrorRate:    cfg.Rollout.Gates.MaxErrorRate,
			MaxDenyRate:     cfg.Rollout.Gates.MaxDenyRate,
			MaxCostIncrease: cfg.Rollout.Gates.MaxCostIncrease,
			MinSamples:      cfg.Rollout.Gates.MinSamples,
		})
		if passed {
			fmt.Println("✓ All promotion gates passed")
			return nil
		}
		for _, reason := range reasons {
			fmt.Printf("✗ %s\n", reason)
		}
		os.Exit(cli.ExitValidation)
		return nil
	},
}

var rolloutStatusFlags struct {
	output string
}

var rolloutStatusCmd = &cobra.Command{
	Use:   "status [bundle-id]",
	Short: "Show rollout status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, st, _, err := buildController()
		if err != nil {
			return err
		}
		defer st.Close()

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			active, err := st.bundles.GetActive(cmd.Context())
			if err != nil {
				return cli.NewCommandError("rollout status", err)
			}
			if active == nil {
				fmt.Println("No active bundle")
				return nil
			}
			id = active.ID
		}

		status, err := ctrl.Status(cmd.Context(), id)
		if err != nil {
			return cli.NewCommandError("rollout status", err)
		}

		if cli.OutputFormat(rolloutStatusFlags.output) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, status)
		}

		fmt.Printf("Version:            %s\n", status.Version)
		fmt.Printf("Active:             %t\n", status.Active)
		fmt.Printf("Canary:             %.0f%%\n", status.CanaryPct)
		fmt.Printf("Time active:        %s\n", status.TimeActive.Round(0))
		fmt.Printf("Promotion eligible: %t\n", status.PromotionEligible)
		return nil
	},
}

var rolloutListFlags struct {
	output string
}

var rolloutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("rollout list", err)
		}
		defer st.Close()

		bundles, err := st.bundles.List(cmd.Context())
		if err != nil {
			return cli.NewCommandError("rollout list", err)
		}

		if cli.OutputFormat(rolloutListFlags.output) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, bundles)
		}

		rows := [][]string{{"ID", "VERSION", "ACTIVE", "CANARY", "CREATED"}}
		for _, b := range bundles {
			rows = append(rows, []string{
				b.ID,
				b.Version,
				strconv.FormatBool(b.Active),
				fmt.Sprintf("%.0f%%", b.CanaryPct),
				b.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		return cli.WriteTable(os.Stdout, rows)
	},
}

func init() {
	rootCmd.AddCommand(rolloutCmd)
	rolloutCmd.AddCommand(rolloutCreateCmd)
	rolloutCmd.AddCommand(rolloutActivateCmd)
	rolloutCmd.AddCommand(rolloutPromoteCmd)
	rolloutCmd.AddCommand(rolloutRollbackCmd)
	rolloutCmd.AddCommand(rolloutGatesCmd)
	rolloutCmd.AddCommand(rolloutStatusCmd)
	rolloutCmd.AddCommand(rolloutListCmd)

	rolloutActivateCmd.Flags().StringVar(&rolloutActivateFlags.approvalID, "approval", "", "approval ID authorizing activation")
	rolloutActivateCmd.Flags().StringVar(&rolloutActivateFlags.actor, "actor", "", "who is activating")
	rolloutActivateCmd.Flags().Float64Var(&rolloutActivateFlags.pct, "pct", 0, "canary percentage (defaults to configured)")
	_ = rolloutActivateCmd.MarkFlagRequired("approval")
	_ = rolloutActivateCmd.MarkFlagRequired("actor")

	rolloutPromoteCmd.Flags().Float64Var(&rolloutPromoteFlags.pct, "pct", 100, "target canary percentage")

	rolloutGatesCmd.Flags().StringVar(&rolloutGatesFlags.metricsPath, "metrics", "", "gate metrics JSON file")
	_ = rolloutGatesCmd.MarkFlagRequired("metrics")

	rolloutRollbackCmd.Flags().StringVar(&rolloutRollbackFlags.reason, "reason", "", "why the bundle is being rolled back")
	rolloutRollbackCmd.Flags().StringVar(&rolloutRollbackFlags.actor, "actor", "", "who is rolling back")
	rolloutRollbackCmd.Flags().BoolVar(&rolloutRollbackFlags.noIncident, "no-incident", false, "skip incident creation")
	_ = rolloutRollbackCmd.MarkFlagRequired("reason")
	_ = rolloutRollbackCmd.MarkFlagRequired("actor")

	rolloutStatusCmd.Flags().StringVarP(&rolloutStatusFlags.output, "output", "o", "text", "output format (text, json)")
	rolloutListCmd.Flags().StringVarP(&rolloutListFlags.output, "output", "o", "text", "output format (text, json)")
}
