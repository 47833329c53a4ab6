// Package commandutil holds helpers shared by providers that drive
// external tools through ports.CommandRunner.
package commandutil

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// ExitCommandNotFound is the shell's status for a missing executable.
const ExitCommandNotFound = 127

// IsCommandNotFound reports whether an error indicates a missing executable.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return true
	}
	return false
}

// Run executes a mutating command with the run context's scoped options.
// A non-zero exit becomes a *compiler.ExternalCommandError carrying the
// tool's status and output.
func Run(ctx compiler.RunContext, runner ports.CommandRunner, command string, args ...string) (ports.CommandResult, error) {
	return run(ctx, runner, ctx.CommandOptions(), command, args...)
}

// RunInteractive is Run with the operator's terminal attached.
func RunInteractive(ctx compiler.RunContext, runner ports.CommandRunner, command string, args ...string) (ports.CommandResult, error) {
	opts := ctx.CommandOptions()
	opts.Interactive = true
	return run(ctx, runner, opts, command, args...)
}

func run(ctx compiler.RunContext, runner ports.CommandRunner, opts ports.CommandOptions, command string, args ...string) (ports.CommandResult, error) {
	result, err := runner.RunWith(ctx.Context(), opts, command, args...)
	if err != nil {
		if IsCommandNotFound(err) {
			return result, compiler.NewExternalCommandError(command, args, ExitCommandNotFound, "", err.Error())
		}
		return result, fmt.Errorf("%s: %w", ports.CommandCall{Command: command, Args: args}.String(), err)
	}
	if !result.Success() {
		return result, compiler.NewExternalCommandError(command, args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result, nil
}

// Probe executes a read-only command used by Check. A missing executable is
// reported as exit status 127 rather than an error, so callers can treat
// "tool absent" as "effect absent". Only transport failures return an error.
func Probe(ctx compiler.RunContext, runner ports.CommandRunner, command string, args ...string) (ports.CommandResult, error) {
	result, err := runner.RunWith(ctx.Context(), ctx.CommandOptions(), command, args...)
	if err != nil {
		if IsCommandNotFound(err) {
			return ports.CommandResult{ExitCode: ExitCommandNotFound, Stderr: err.Error()}, nil
		}
		return result, fmt.Errorf("%s: %w", ports.CommandCall{Command: command, Args: args}.String(), err)
	}
	return result, nil
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// NonEmptyLines splits s into trimmed, non-empty lines.
func NonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
