package main

import (
	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain each provisioning step",
	Long: `Explain prints what every step does and why, in execution order.
It does not touch the host. Use --verbose for the full detail of each step.`,
	Args: cobra.NoArgs,
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, _ []string) error {
	labelhost, done, err := newLabelhost(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer done()

	return labelhost.Explain(options(), verbose)
}
