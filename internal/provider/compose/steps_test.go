package compose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
	"github.com/felixgeelhaar/labelhost/internal/testutil/mocks"
)

var project = Project{Name: "cvat", Dir: "/opt/cvat", BinDir: "/usr/local/bin", Binary: "docker-compose"}

var checkCommand = []string{"bash", "-c", "python3 ~/manage.py shell -c 'print(True)'"}

func runCtx() compiler.RunContext {
	return compiler.NewRunContext(context.Background())
}

func withTerminal() bool    { return true }
func withoutTerminal() bool { return false }

const (
	headCommit = "9d2c7e1f4b8a3c6e5d0f1a2b3c4d5e6f7a8b9c0d"
	oldCommit  = "1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b"
)

var headArgs = []string{"-C", "/opt/cvat", "rev-parse", "HEAD"}

func recordedArgs(key string) []string {
	return []string{"-C", "/opt/cvat", "config", "--local", "--get", key}
}

func stampArgs(key, commit string) []string {
	return []string{"-C", "/opt/cvat", "config", "--local", key, commit}
}

func TestBuildStep_Check(t *testing.T) {
	tests := []struct {
		name     string
		head     ports.CommandResult
		recorded ports.CommandResult
		want     compiler.StepStatus
	}{
		{name: "built from checked-out commit", head: ports.CommandResult{Stdout: headCommit + "\n"}, recorded: ports.CommandResult{Stdout: headCommit + "\n"}, want: compiler.StatusSatisfied},
		{name: "built from another commit", head: ports.CommandResult{Stdout: headCommit + "\n"}, recorded: ports.CommandResult{Stdout: oldCommit + "\n"}, want: compiler.StatusNeedsApply},
		{name: "never built", head: ports.CommandResult{Stdout: headCommit + "\n"}, recorded: ports.CommandResult{ExitCode: 1}, want: compiler.StatusNeedsApply},
		{name: "no clone yet", head: ports.CommandResult{ExitCode: 128, Stderr: "fatal: cannot change to '/opt/cvat'"}, want: compiler.StatusNeedsApply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mocks.NewCommandRunner()
			runner.AddResult("git", headArgs, tt.head)
			runner.AddResult("git", recordedArgs(builtKey), tt.recorded)

			status, err := NewBuildStep(project, runner).Check(runCtx())
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestBuildStep_Plan_ShowsCommitChange(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("git", headArgs, ports.CommandResult{Stdout: headCommit + "\n"})
	runner.AddResult("git", recordedArgs(builtKey), ports.CommandResult{Stdout: oldCommit + "\n"})

	diff, err := NewBuildStep(project, runner).Plan(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.DiffTypeModify, diff.Type())
	assert.Equal(t, oldCommit[:12], diff.OldValue())
	assert.Equal(t, "built at "+headCommit[:12], diff.NewValue())
	assert.Equal(t, "cd /opt/cvat && docker-compose build", diff.Command())
}

func TestBuildStep_Apply_UsesScopedEnvironment(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("git", headArgs, ports.CommandResult{Stdout: headCommit + "\n"})
	runner.AddResult("docker-compose", []string{"build"}, ports.CommandResult{})
	runner.AddResult("git", stampArgs(builtKey, headCommit), ports.CommandResult{})

	step := NewBuildStep(project, runner)
	assert.Equal(t, "compose:build:cvat", step.ID().String())
	require.NoError(t, step.Apply(runCtx()))

	calls := runner.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "docker-compose build", calls[1].String())
	assert.Equal(t, "/opt/cvat", calls[1].Options.Dir)
	assert.Equal(t, []string{"/usr/local/bin"}, calls[1].Options.ExtraPath)
	assert.Equal(t, 1, runner.CallCount("git", stampArgs(builtKey, headCommit)...), "the built commit is recorded")
}

func TestBuildStep_Apply_Failure(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("git", headArgs, ports.CommandResult{Stdout: headCommit + "\n"})
	runner.AddResult("docker-compose", []string{"build"}, ports.CommandResult{ExitCode: 2, Stderr: "ERROR: Service 'cvat' failed to build"})

	err := NewBuildStep(project, runner).Apply(runCtx())
	assert.Equal(t, 2, compiler.ExitStatus(err))
	assert.Zero(t, runner.CallCount("git", stampArgs(builtKey, headCommit)...), "a failed build records nothing")
}

func TestUpStep_Check(t *testing.T) {
	servicesArgs := []string{"config", "--services"}
	runningArgs := []string{"ps", "--services", "--filter", "status=running"}

	tests := []struct {
		name  string
		setup func(*mocks.CommandRunner)
		want  compiler.StepStatus
	}{
		{
			name: "all running",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult("docker-compose", servicesArgs, ports.CommandResult{Stdout: "cvat_db\ncvat_redis\ncvat\n"})
				r.AddResult("docker-compose", runningArgs, ports.CommandResult{Stdout: "cvat\ncvat_db\ncvat_redis\n"})
				r.AddResult("git", headArgs, ports.CommandResult{Stdout: headCommit + "\n"})
				r.AddResult("git", recordedArgs(deployedKey), ports.CommandResult{Stdout: headCommit + "\n"})
			},
			want: compiler.StatusSatisfied,
		},
		{
			name: "running from another commit",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult("docker-compose", servicesArgs, ports.CommandResult{Stdout: "cvat_db\ncvat_redis\ncvat\n"})
				r.AddResult("docker-compose", runningArgs, ports.CommandResult{Stdout: "cvat\ncvat_db\ncvat_redis\n"})
				r.AddResult("git", headArgs, ports.CommandResult{Stdout: headCommit + "\n"})
				r.AddResult("git", recordedArgs(deployedKey), ports.CommandResult{Stdout: oldCommit + "\n"})
			},
			want: compiler.StatusNeedsApply,
		},
		{
			name: "one stopped",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult("docker-compose", servicesArgs, ports.CommandResult{Stdout: "cvat_db\ncvat_redis\ncvat\n"})
				r.AddResult("docker-compose", runningArgs, ports.CommandResult{Stdout: "cvat_db\ncvat_redis\n"})
			},
			want: compiler.StatusNeedsApply,
		},
		{
			name: "project unreadable",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult("docker-compose", servicesArgs, ports.CommandResult{ExitCode: 1})
			},
			want: compiler.StatusNeedsApply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mocks.NewCommandRunner()
			tt.setup(runner)

			status, err := NewUpStep(project, runner).Check(runCtx())
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestUpStep_Apply(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("git", headArgs, ports.CommandResult{Stdout: headCommit + "\n"})
	runner.AddResult("docker-compose", []string{"up", "-d"}, ports.CommandResult{})
	runner.AddResult("git", stampArgs(deployedKey, headCommit), ports.CommandResult{})

	step := NewUpStep(project, runner)
	assert.Equal(t, "compose:up:cvat", step.ID().String())
	require.NoError(t, step.Apply(runCtx()))

	calls := runner.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "/opt/cvat", calls[1].Options.Dir)
	assert.Equal(t, "git -C /opt/cvat config --local "+deployedKey+" "+headCommit, calls[2].String())
}

func TestExecStep_Check(t *testing.T) {
	spec := ExecSpec{Container: "cvat", Command: []string{"sh"}, CheckCommand: checkCommand, CheckExpect: "True"}
	args := append([]string{"exec", "cvat"}, checkCommand...)

	runner := mocks.NewCommandRunner()
	runner.AddResults("docker", args,
		ports.CommandResult{Stdout: "False\n"},
		ports.CommandResult{Stdout: "True\n"},
	)
	step := NewExecStep(spec, runner, withTerminal)

	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)

	status, err = step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusSatisfied, status)
}

func TestExecStep_Check_NoCheckCommand(t *testing.T) {
	runner := mocks.NewCommandRunner()
	step := NewExecStep(ExecSpec{Container: "cvat", Command: []string{"sh"}}, runner, withTerminal)

	status, err := step.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)
	assert.Empty(t, runner.Calls())
}

func TestExecStep_Apply_Interactive(t *testing.T) {
	cmd := []string{"bash", "-ic", "python3 ~/manage.py createsuperuser"}
	runner := mocks.NewCommandRunner()
	runner.AddResult("docker", append([]string{"exec", "-it", "cvat"}, cmd...), ports.CommandResult{})

	step := NewExecStep(ExecSpec{Container: "cvat", Command: cmd}, runner, withTerminal)
	assert.Equal(t, "container:exec:cvat", step.ID().String())
	require.NoError(t, step.Apply(runCtx()))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Options.Interactive)
}

func TestExecStep_Apply_NoTerminal(t *testing.T) {
	runner := mocks.NewCommandRunner()
	step := NewExecStep(ExecSpec{Container: "cvat", Command: []string{"sh"}}, runner, withoutTerminal)

	err := step.Apply(runCtx())
	assert.True(t, errors.Is(err, ErrNoTerminal))
	assert.Empty(t, runner.Calls(), "nothing runs without a terminal")
}

func TestExecStep_Plan(t *testing.T) {
	step := NewExecStep(ExecSpec{Container: "cvat", Command: []string{"bash", "-ic", "python3 ~/manage.py createsuperuser"}},
		mocks.NewCommandRunner(), withTerminal)

	diff, err := step.Plan(runCtx())
	require.NoError(t, err)
	assert.Equal(t, "docker exec -it cvat bash -ic python3 ~/manage.py createsuperuser", diff.Command())
	assert.NotEmpty(t, step.Explain(compiler.NewExplainContext()).Notes())
}
