package commandutil

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/testutil/mocks"
)

func TestIsCommandNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"exec ErrNotFound", exec.ErrNotFound, true},
		{"exec error wrapper", &exec.Error{Err: exec.ErrNotFound}, true},
		{"path error", &os.PathError{Err: os.ErrNotExist}, true},
		{"other error", errors.New("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsCommandNotFound(tt.err))
		})
	}
}

func TestRun_PassesScopedOptions(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("docker-compose", []string{"build"}, ports.CommandResult{ExitCode: 0})

	ctx := compiler.NewRunContext(context.Background()).
		WithExtraPath("/usr/local/bin").
		WithWorkDir("/opt/cvat")

	_, err := Run(ctx, runner, "docker-compose", "build")
	require.NoError(t, err)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/opt/cvat", calls[0].Options.Dir)
	assert.Equal(t, []string{"/usr/local/bin"}, calls[0].Options.ExtraPath)
	assert.False(t, calls[0].Options.Interactive)
}

func TestRun_NonZeroExit(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("yum", []string{"install", "-y", "docker"}, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "No package docker available.",
	})

	_, err := Run(compiler.NewRunContext(context.Background()), runner, "yum", "install", "-y", "docker")
	require.Error(t, err)

	var cmdErr *compiler.ExternalCommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 1, cmdErr.ExitStatus)
	assert.Equal(t, "yum install -y docker", cmdErr.CommandLine())
	assert.Contains(t, cmdErr.Error(), "No package docker available.")
}

func TestRun_MissingExecutable(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddError("chkconfig", []string{"docker", "on"}, exec.ErrNotFound)

	_, err := Run(compiler.NewRunContext(context.Background()), runner, "chkconfig", "docker", "on")

	var cmdErr *compiler.ExternalCommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, ExitCommandNotFound, cmdErr.ExitStatus)
}

func TestRun_TransportError(t *testing.T) {
	runner := mocks.NewCommandRunner()
	cause := errors.New("ssh: connection lost")
	runner.AddError("git", []string{"clone"}, cause)

	_, err := Run(compiler.NewRunContext(context.Background()), runner, "git", "clone")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, compiler.ExitStatus(err))
}

func TestRunInteractive(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("docker", []string{"exec", "-it", "cvat", "sh"}, ports.CommandResult{ExitCode: 0})

	_, err := RunInteractive(compiler.NewRunContext(context.Background()), runner, "docker", "exec", "-it", "cvat", "sh")
	require.NoError(t, err)
	assert.True(t, runner.Calls()[0].Options.Interactive)
}

func TestProbe(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("rpm", []string{"-q", "git"}, ports.CommandResult{ExitCode: 1, Stdout: "package git is not installed"})
	runner.AddError("docker-compose", []string{"version", "--short"}, exec.ErrNotFound)
	runner.AddError("id", []string{"-u"}, errors.New("ssh: handshake failed"))

	ctx := compiler.NewRunContext(context.Background())

	result, err := Probe(ctx, runner, "rpm", "-q", "git")
	require.NoError(t, err, "a non-zero probe is an answer, not an error")
	assert.Equal(t, 1, result.ExitCode)

	result, err = Probe(ctx, runner, "docker-compose", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, ExitCommandNotFound, result.ExitCode)

	_, err = Probe(ctx, runner, "id", "-u")
	assert.Error(t, err)
}

func TestLines(t *testing.T) {
	assert.Equal(t, "1.25.0", FirstLine("\n  1.25.0\nextra\n"))
	assert.Empty(t, FirstLine("  \n"))
	assert.Equal(t, []string{"a", "b"}, NonEmptyLines("a\n\n  b \n"))
	assert.Nil(t, NonEmptyLines(""))
}
