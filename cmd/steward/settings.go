package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steward-hq/steward/pkg/cli"
	"steward-hq/steward/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change runtime settings",
}

var settingsShowFlags struct {
	output string
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current runtime settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("settings show", err)
		}
		defer st.Close()

		s, err := st.settings.Get(cmd.Context())
		if err != nil {
			return cli.NewCommandError("settings show", err)
		}

		if cli.OutputFormat(settingsShowFlags.output) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, s)
		}

		fmt.Printf("Canary:      %.0f%%\n", s.CanaryPct)
		fmt.Printf("Kill switch: %t\n", s.KillSwitch)
		if s.UpdatedBy != "" {
			fmt.Printf("Updated by:  %s (%s)\n", s.UpdatedBy, s.UpdateReason)
		}
		if !s.UpdatedAt.IsZero() {
			fmt.Printf("Updated at:  %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var settingsSetFlags struct {
	canaryPct  float64
	killSwitch string
	actor      string
	reason     string
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change canary percentage or the kill switch",
	Long: `Change runtime settings. Only flags that are passed are changed.

Examples:
  # Resume automation after a detector rollback
  steward settings set --kill-switch=false --actor alice --reason "regression fixed in 1.4.1"

  # Manually widen the canary
  steward settings set --canary-pct 25 --actor alice --reason "1.4.1 looking healthy"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("settings set", err)
		}
		defer st.Close()

		pctChanged := cmd.Flags().Changed("canary-pct")
		killChanged := cmd.Flags().Changed("kill-switch")
		if !pctChanged && !killChanged {
			return cli.NewCommandError("settings set", fmt.Errorf("nothing to change, pass --canary-pct or --kill-switch"))
		}

		s, err := st.settings.Update(cmd.Context(), settingsSetFlags.actor, settingsSetFlags.reason, func(s *settings.Settings) error {
			if pctChanged {
				s.CanaryPct = settingsSetFlags.canaryPct
			}
			if killChanged {
				switch settingsSetFlags.killSwitch {
				case "true":
					s.KillSwitch = true
				case "false":
					s.KillSwitch = false
				default:
					return fmt.Errorf("kill-switch must be true or false, got %q", settingsSetFlags.killSwitch)
				}
			}
			return nil
		})
		if err != nil {
			return cli.NewCommandError("settings set", err)
		}

		fmt.Printf("✓ Settings updated: canary %.0f%%, kill switch %t\n", s.CanaryPct, s.KillSwitch)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsShowCmd.Flags().StringVarP(&settingsShowFlags.output, "output", "o", "text", "output format (text, json)")

	settingsSetCmd.Flags().Float64Var(&settingsSetFlags.canaryPct, "canary-pct", 0, "canary routing percentage [0, 100]")
	settingsSetCmd.Flags().StringVar(&settingsSetFlags.killSwitch, "kill-switch", "", "enable or disable the kill switch (true, false)")
	settingsSetCmd.Flags().StringVar(&settingsSetFlags.actor, "actor", "", "who is changing settings")
	settingsSetCmd.Flags().StringVar(&settingsSetFlags.reason, "reason", "", "why settings are changing")
	_ = settingsSetCmd.MarkFlagRequired("actor")
	_ = settingsSetCmd.MarkFlagRequired("reason")
}
