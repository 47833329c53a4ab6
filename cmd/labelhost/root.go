package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/labelhost/internal/adapters/logging"
	"github.com/felixgeelhaar/labelhost/internal/app"
	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/domain/config"
	"github.com/felixgeelhaar/labelhost/internal/domain/execution"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	logFormat string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "labelhost",
	Short: "Provision a host to run a containerized labeling tool",
	Long: `Labelhost prepares a yum-based host to serve a containerized labeling
application. It installs the container runtime and git, fetches the compose
binary, clones the application, builds and starts it, and creates the first
administrator.

Every step checks the host first, so re-running is safe: completed steps are
skipped and the first failure stops the run.`,
	Args:          cobra.NoArgs,
	RunE:          runApply,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: labelhost.yaml or labelhost.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write a JSON log to this file")

	registerFlagCompletions()
	registerApplyFlags(rootCmd.Flags())

	rootCmd.AddCommand(versionCmd)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// labelhostClient is the part of the application the commands drive.
type labelhostClient interface {
	Apply(context.Context, app.Options) (*execution.Report, error)
	Plan(context.Context, app.Options) (*execution.Plan, error)
	PrintPlan(*execution.Plan)
	Explain(app.Options, bool) error
}

// newLabelhost builds the application with a logger configured from the
// configuration file's log section, overridden by command-line flags. The
// returned function flushes and closes the logger.
var newLabelhost = func(out io.Writer) (labelhostClient, func(), error) {
	logger, err := newLogger(os.Stderr, resolveLogConfig())
	if err != nil {
		return nil, nil, err
	}
	return app.New(out, logger), func() { _ = logger.Close() }, nil
}

// options builds the application options shared by every command.
func options() app.Options {
	return app.Options{
		ConfigPath: cfgFile,
		Dir:        workDir(),
	}
}

// resolveLogConfig reads the log section of the configuration, if any, and
// applies flag overrides. A missing or broken file falls back to defaults;
// the real load reports the problem.
func resolveLogConfig() config.LogConfig {
	logCfg := config.Defaults().Log
	if cfg, err := config.NewLoader().Load(cfgFile, workDir()); err == nil {
		logCfg = cfg.Log
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if logFormat != "" {
		logCfg.Format = logFormat
	}
	if logFile != "" {
		logCfg.File = logFile
	}
	return logCfg
}

func newLogger(w io.Writer, logCfg config.LogConfig) (*logging.ConsoleLogger, error) {
	level, err := ports.ParseLevel(logCfg.Level)
	if err != nil {
		return nil, err
	}

	var jsonFormat bool
	switch strings.ToLower(logCfg.Format) {
	case "", "text":
	case "json":
		jsonFormat = true
	default:
		return nil, fmt.Errorf("unknown log format %q (use text or json)", logCfg.Format)
	}

	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithJSONFormat(jsonFormat),
		logging.WithFile(logCfg.File),
	), nil
}

func workDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var list *config.ErrorList
	if errors.As(err, &list) && len(list.Errors()) > 1 {
		var b strings.Builder
		fmt.Fprintf(&b, "%d configuration errors:", len(list.Errors()))
		for i, userErr := range list.Errors() {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, strings.ReplaceAll(formatUserError(userErr), "\n\n", "\n     "))
		}
		return b.String()
	}

	var userErr *config.UserError
	if errors.As(err, &userErr) {
		return formatUserError(userErr)
	}

	var provErr *compiler.ProvisioningError
	if errors.As(err, &provErr) {
		msg := provErr.Error()
		if s := provErr.Suggestion(); s != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", s)
		}
		var cmdErr *compiler.ExternalCommandError
		if verbose && errors.As(err, &cmdErr) {
			if stderr := strings.TrimSpace(cmdErr.Stderr); stderr != "" {
				msg += fmt.Sprintf("\n\nCommand output:\n%s", stderr)
			}
		}
		return msg
	}

	return err.Error()
}

func formatUserError(userErr *config.UserError) string {
	msg := userErr.Message
	if userErr.Context != "" && !strings.HasPrefix(msg, userErr.Context+":") {
		msg += fmt.Sprintf(" (at %s)", userErr.Context)
	}
	if userErr.Suggestion != "" {
		msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
	}
	if verbose && userErr.Underlying != nil {
		msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
	}
	return msg
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	// Complete --config with configuration files
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"text\tHuman-readable console output",
			"json\tOne JSON object per line",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}
