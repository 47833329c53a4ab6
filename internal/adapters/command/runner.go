// Package command provides command execution adapters.
package command

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// RealRunner executes commands on the local machine.
type RealRunner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewRealRunner creates a new RealRunner attached to the process's standard streams
// for interactive commands.
func NewRealRunner() *RealRunner {
	return &RealRunner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithStreams returns a copy of the runner that uses the given streams for
// interactive commands.
func (r *RealRunner) WithStreams(stdin io.Reader, stdout, stderr io.Writer) *RealRunner {
	return &RealRunner{stdin: stdin, stdout: stdout, stderr: stderr}
}

// Run executes a command and returns the result.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	return r.RunWith(ctx, ports.CommandOptions{}, command, args...)
}

// RunWith executes a command with a scoped working directory and PATH.
// A non-zero exit is reported through the result, not the error.
func (r *RealRunner) RunWith(ctx context.Context, opts ports.CommandOptions, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.ExtraPath) > 0 {
		cmd.Env = withPath(os.Environ(), opts)
		// exec.LookPath ran against the parent PATH; resolve again so a
		// binary living only in ExtraPath is found.
		if !strings.ContainsRune(command, os.PathSeparator) {
			if resolved, err := lookPathIn(command, opts.PathValue(os.Getenv("PATH"))); err == nil {
				cmd.Path = resolved
				cmd.Err = nil
			}
		}
	}

	var stdout, stderr strings.Builder
	if opts.Interactive {
		cmd.Stdin = r.stdin
		cmd.Stdout = r.stdout
		cmd.Stderr = io.MultiWriter(r.stderr, &stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()

	result := ports.CommandResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

func withPath(environ []string, opts ports.CommandOptions) []string {
	env := make([]string, 0, len(environ)+1)
	inherited := ""
	for _, kv := range environ {
		if strings.HasPrefix(kv, "PATH=") {
			inherited = strings.TrimPrefix(kv, "PATH=")
			continue
		}
		env = append(env, kv)
	}
	return append(env, "PATH="+opts.PathValue(inherited))
}

func lookPathIn(command, path string) (string, error) {
	for _, dir := range strings.Split(path, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := dir + string(os.PathSeparator) + command
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}
	return "", exec.ErrNotFound
}

// Ensure RealRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*RealRunner)(nil)
