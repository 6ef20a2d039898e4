package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"steward-hq/steward/pkg/audit"
	"steward-hq/steward/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and maintain the audit trail",
}

var auditQueryFlags struct {
	record  string
	actor   string
	outcome string
	limit   int
	output  string
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit actions, newest first",
	Long: `Query the audit trail.

Examples:
  steward audit query --record 8f14e45f
  steward audit query --actor alice --outcome fail -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		defer st.Close()

		actions, err := st.audits.Query(cmd.Context(), &audit.Query{
			SubjectRecordID: auditQueryFlags.record,
			Actor:           auditQueryFlags.actor,
			Outcome:         audit.Outcome(auditQueryFlags.outcome),
			Limit:           auditQueryFlags.limit,
		})
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}

		if cli.OutputFormat(auditQueryFlags.output) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, actions)
		}

		rows := [][]string{{"TIMESTAMP", "ACTION", "RECORD", "ACTOR", "OUTCOME"}}
		for _, a := range actions {
			rows = append(rows, []string{
				a.Timestamp.Format(time.RFC3339),
				a.Action,
				a.SubjectRecordID,
				a.Actor,
				string(a.Outcome),
			})
		}
		return cli.WriteTable(os.Stdout, rows)
	},
}

var auditPruneFlags struct {
	olderThan time.Duration
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit actions older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("audit prune", err)
		}
		defer st.Close()

		cutoff := time.Now().Add(-auditPruneFlags.olderThan)
		pruned, err := st.audits.Prune(cmd.Context(), cutoff)
		if err != nil {
			return cli.NewCommandError("audit prune", err)
		}

		fmt.Printf("✓ Pruned %d audit actions older than %s\n", pruned, cutoff.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditPruneCmd)

	auditQueryCmd.Flags().StringVar(&auditQueryFlags.record, "record", "", "filter by subject record ID")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.actor, "actor", "", "filter by actor")
	auditQueryCmd.Flags().StringVar(&auditQueryFlags.outcome, "outcome", "", "filter by outcome (success, fail, noop)")
	auditQueryCmd.Flags().IntVar(&auditQueryFlags.limit, "limit", 0, "maximum results")
	auditQueryCmd.Flags().StringVarP(&auditQueryFlags.output, "output", "o", "text", "output format (text, json)")

	auditPruneCmd.Flags().DurationVar(&auditPruneFlags.olderThan, "older-than", 90*24*time.Hour, "age cutoff")
}
