package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what labelhost would change",
	Long: `Plan loads your configuration and checks every step against the host
without making changes.

Checks only observe the current state, so steps that depend on earlier ones
(for example the clone before the build) report what they see today.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	labelhost, done, err := newLabelhost(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer done()

	plan, err := labelhost.Plan(ctx, options())
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	labelhost.PrintPlan(plan)
	return nil
}
