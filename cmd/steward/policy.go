package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"steward-hq/steward/pkg/cli"
	"steward-hq/steward/pkg/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage automation policies",
}

var policyValidateFlags struct {
	dir string
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate policy files",
	Long: `Load every policy YAML file in the policy directory and report
parse and validation errors without touching the store.

Examples:
  steward policy validate
  steward policy validate --dir ./policies`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := policyValidateFlags.dir
		if dir == "" {
			cfg, err := loadConfig()
			if err != nil {
				return cli.NewConfigError("", err.Error())
			}
			dir = cfg.Policy.Dir
		}

		source := policy.NewFileSource(dir, slog.Default())
		policies, err := source.Load(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(cli.ExitValidation)
		}

		fmt.Printf("✓ %d policies valid in %s\n", len(policies), dir)
		return nil
	},
}

var policyListFlags struct {
	output string
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("policy list", err)
		}
		defer st.Close()

		policies, err := st.policies.List(cmd.Context())
		if err != nil {
			return cli.NewCommandError("policy list", err)
		}

		if cli.OutputFormat(policyListFlags.output) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, policies)
		}

		rows := [][]string{{"NAME", "ACTION", "PRIORITY", "THRESHOLD", "ENABLED", "PROVENANCE"}}
		for _, p := range policies {
			rows = append(rows, []string{
				p.Name,
				string(p.Action),
				strconv.Itoa(p.Priority),
				fmt.Sprintf("%.2f", p.ConfidenceThreshold),
				strconv.FormatBool(p.Enabled),
				p.Provenance,
			})
		}
		return cli.WriteTable(os.Stdout, rows)
	},
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyListCmd)

	policyValidateCmd.Flags().StringVar(&policyValidateFlags.dir, "dir", "", "policy directory (defaults to config)")
	policyListCmd.Flags().StringVarP(&policyListFlags.output, "output", "o", "text", "output format (text, json)")
}
