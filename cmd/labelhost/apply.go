package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Provision this host",
	Long: `Apply runs every provisioning step in order.

Each step checks the host first and only acts when needed. The first failing
step stops the run; the exit status is that of the failing command.

Use --dry-run to see what would happen without making changes.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

var (
	applyDryRun    bool
	applySkipAdmin bool
)

func init() {
	rootCmd.AddCommand(applyCmd)
	registerApplyFlags(applyCmd.Flags())
}

// registerApplyFlags adds the apply flags to fs. The root command runs apply
// and shares them.
func registerApplyFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&applyDryRun, "dry-run", false, "Show what would be done without making changes")
	fs.BoolVar(&applySkipAdmin, "skip-admin", false, "Skip creating the administrator account")
}

func runApply(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	labelhost, done, err := newLabelhost(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer done()

	opts := options()
	opts.DryRun = applyDryRun
	opts.SkipAdmin = applySkipAdmin

	if _, err := labelhost.Apply(ctx, opts); err != nil {
		return err
	}
	if applyDryRun {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\n[Dry run - no changes made]")
	}
	return nil
}
