package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"steward-hq/steward/pkg/approval"
	"steward-hq/steward/pkg/cli"
	"steward-hq/steward/pkg/policy"
	"steward-hq/steward/pkg/proposal"
	"steward-hq/steward/pkg/rollout"
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Review and act on proposed actions",
}

var proposalsListFlags struct {
	status string
	user   string
	limit  int
	output string
}

var proposalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals",
	Long: `List proposals, newest first.

Examples:
  steward proposals list --status pending
  steward proposals list --user alice@example.com -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("proposals list", err)
		}
		defer st.Close()

		filter := &proposal.Filter{
			User:   proposalsListFlags.user,
			Status: proposal.Status(proposalsListFlags.status),
			Limit:  proposalsListFlags.limit,
		}
		proposals, err := st.proposals.List(cmd.Context(), filter)
		if err != nil {
			return cli.NewCommandError("proposals list", err)
		}

		if cli.OutputFormat(proposalsListFlags.output) == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, proposals)
		}

		rows := [][]string{{"ID", "USER", "ACTION", "CONFIDENCE", "STATUS", "CREATED"}}
		for _, p := range proposals {
			rows = append(rows, []string{
				p.ID,
				p.User,
				string(p.Action),
				fmt.Sprintf("%.2f", p.Confidence),
				string(p.Status),
				p.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		return cli.WriteTable(os.Stdout, rows)
	},
}

var proposalsProposeFlags struct {
	recordPath string
}

var proposalsProposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Evaluate a record against the stored policies",
	Long: `Run one mailbox record through the proposal engine. The record is
read as JSON from --record. When a policy fires with sufficient
confidence the proposal is persisted as pending and printed.

Examples:
  steward proposals propose --record message.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		st, err := openStores(cfg)
		if err != nil {
			return cli.NewCommandError("proposals propose", err)
		}
		defer st.Close()

		runtime, err := st.settings.Get(cmd.Context())
		if err != nil {
			return cli.NewCommandError("proposals propose", err)
		}
		if runtime.KillSwitch {
			fmt.Println("Kill switch is on; automation is disabled")
			return nil
		}

		data, err := os.ReadFile(proposalsProposeFlags.recordPath)
		if err != nil {
			return cli.NewCommandError("proposals propose", err)
		}
		var record proposal.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return cli.NewCommandError("proposals propose", fmt.Errorf("parsing record: %w", err))
		}

		policies, err := loadRuleSet(cmd, st, record.User, runtime.CanaryPct)
		if err != nil {
			return cli.NewCommandError("proposals propose", err)
		}

		weights, err := proposal.NewWeights(0, 0)
		if err != nil {
			return cli.NewCommandError("proposals propose", err)
		}
		engine := proposal.NewEngine(weights, slog.Default())

		p := engine.Propose(&record, policies)
		if p == nil {
			fmt.Println("No policy fired")
			return nil
		}

		if err := st.proposals.Create(cmd.Context(), p); err != nil {
			return cli.NewCommandError("proposals propose", err)
		}
		if p.PolicyID != "" {
			if err := st.policies.RecordFired(cmd.Context(), p.PolicyID, record.User); err != nil {
				slog.Warn("failed to record policy firing", "policy_id", p.PolicyID, "error", err)
			}
		}

		fmt.Printf("✓ Proposal %s: %s (confidence %.2f) via %s\n", p.ID, p.Action, p.Confidence, p.Rationale.PolicyName)
		return nil
	},
}

var reviewFlags struct {
	reviewer string
}

var proposalsApproveCmd = &cobra.Command{
	Use:   "approve <proposal-id>",
	Short: "Approve and execute a pending proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewProposal(cmd, args[0], true)
	},
}

var proposalsRejectCmd = &cobra.Command{
	Use:   "reject <proposal-id>",
	Short: "Reject a pending proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewProposal(cmd, args[0], false)
	},
}

var proposalsGraduateCmd = &cobra.Command{
	Use:   "graduate <proposal-id>",
	Short: "Promote a reviewed proposal into a standing policy",
	Long: `Create an "always do this" policy from a reviewed proposal. The new
policy matches on the proposal's stable features and proposes the same
action for future records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lc, st, err := buildLifecycle()
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := lc.AlwaysDoThis(cmd.Context(), args[0], reviewFlags.reviewer)
		if err != nil {
			return cli.NewCommandError("proposals graduate", err)
		}

		fmt.Printf("✓ Policy %q created (threshold %.2f)\n", p.Name, p.ConfidenceThreshold)
		return nil
	},
}

func reviewProposal(cmd *cobra.Command, id string, approve bool) error {
	name := "proposals reject"
	if approve {
		name = "proposals approve"
	}

	lc, st, err := buildLifecycle()
	if err != nil {
		return err
	}
	defer st.Close()

	var p *proposal.ProposedAction
	if approve {
		p, err = lc.Approve(cmd.Context(), id, reviewFlags.reviewer)
	} else {
		p, err = lc.Reject(cmd.Context(), id, reviewFlags.reviewer)
	}
	if err != nil {
		return cli.NewCommandError(name, err)
	}

	fmt.Printf("✓ Proposal %s is now %s\n", p.ID, p.Status)
	return nil
}

// loadRuleSet picks the rules a record is evaluated against. Users in
// the canary cohort see the active bundle's snapshot; everyone else
// sees the stable policy store.
func loadRuleSet(cmd *cobra.Command, st *stores, user string, canaryPct float64) ([]*policy.Policy, error) {
	if rollout.InCanary(user, canaryPct) {
		active, err := st.bundles.GetActive(cmd.Context())
		if err != nil {
			return nil, err
		}
		if active != nil {
			policies, err := active.Policies()
			if err != nil {
				return nil, err
			}
			slog.Debug("routing to canary bundle", "user", user, "version", active.Version)
			return policies, nil
		}
	}
	return st.policies.ListEnabled(cmd.Context())
}

func buildLifecycle() (*approval.Lifecycle, *stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, cli.NewConfigError("", err.Error())
	}
	st, err := openStores(cfg)
	if err != nil {
		return nil, nil, cli.NewCommandError("proposals", err)
	}

	weights, err := proposal.NewWeights(0, 0)
	if err != nil {
		st.Close()
		return nil, nil, cli.NewCommandError("proposals", err)
	}

	lc, err := approval.NewLifecycle(approval.Config{
		Proposals:   st.proposals,
		Policies:    st.policies,
		Audits:      st.audits,
		Weights:     weights,
		Executor:    approval.NewLogExecutor(slog.Default()),
		ExecTimeout: cfg.Approval.ExecTimeout,
	})
	if err != nil {
		st.Close()
		return nil, nil, cli.NewCommandError("proposals", err)
	}
	return lc, st, nil
}

func init() {
	rootCmd.AddCommand(proposalsCmd)
	proposalsCmd.AddCommand(proposalsProposeCmd)
	proposalsCmd.AddCommand(proposalsListCmd)
	proposalsCmd.AddCommand(proposalsApproveCmd)
	proposalsCmd.AddCommand(proposalsRejectCmd)
	proposalsCmd.AddCommand(proposalsGraduateCmd)

	proposalsProposeCmd.Flags().StringVar(&proposalsProposeFlags.recordPath, "record", "", "record JSON file")
	_ = proposalsProposeCmd.MarkFlagRequired("record")

	proposalsListCmd.Flags().StringVar(&proposalsListFlags.status, "status", "", "filter by status")
	proposalsListCmd.Flags().StringVar(&proposalsListFlags.user, "user", "", "filter by mailbox owner")
	proposalsListCmd.Flags().IntVar(&proposalsListFlags.limit, "limit", 0, "maximum results")
	proposalsListCmd.Flags().StringVarP(&proposalsListFlags.output, "output", "o", "text", "output format (text, json)")

	for _, c := range []*cobra.Command{proposalsApproveCmd, proposalsRejectCmd, proposalsGraduateCmd} {
		c.Flags().StringVar(&reviewFlags.reviewer, "reviewer", "", "reviewer identity")
		_ = c.MarkFlagRequired("reviewer")
	}
}
