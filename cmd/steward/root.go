package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Steward - rule automation with human approval",
	Long: `Steward is a rule-automation runtime for email triage.

It evaluates mailbox records against operator-defined policies and
proposes actions rather than taking them: every proposal carries a
confidence score and a rationale, waits for a reviewer, and leaves an
audit trail when executed. Policy bundles roll out behind a canary
percentage with promotion gates and automatic regression rollback.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
