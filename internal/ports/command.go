// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"os"
	"strings"
)

// CommandResult represents the result of executing a shell command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandOptions scopes a single command invocation.
// Nothing here leaks into the provisioning process itself.
type CommandOptions struct {
	// Dir is the working directory for the command. Empty means inherit.
	Dir string
	// ExtraPath is prepended to PATH for this command only.
	ExtraPath []string
	// Interactive attaches the operator's terminal to the command.
	Interactive bool
}

// IsZero reports whether no options are set.
func (o CommandOptions) IsZero() bool {
	return o.Dir == "" && len(o.ExtraPath) == 0 && !o.Interactive
}

// PathValue returns the PATH value to use given the inherited one.
func (o CommandOptions) PathValue(inherited string) string {
	if len(o.ExtraPath) == 0 {
		return inherited
	}
	parts := make([]string, 0, len(o.ExtraPath)+1)
	parts = append(parts, o.ExtraPath...)
	if inherited != "" {
		parts = append(parts, inherited)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
	Options CommandOptions
}

// String renders the call the way an operator would type it.
func (c CommandCall) String() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
	RunWith(ctx context.Context, opts CommandOptions, command string, args ...string) (CommandResult, error)
}
