package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/labelhost/internal/adapters/logging"
	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/domain/execution"
)

type stubStep struct {
	id        compiler.StepID
	satisfied bool
	applyErr  error
}

func (s *stubStep) ID() compiler.StepID { return s.id }

func (s *stubStep) Check(compiler.RunContext) (compiler.StepStatus, error) {
	if s.satisfied {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

func (s *stubStep) Plan(compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeAdd, "stub", s.id.String(), "", "present"), nil
}

func (s *stubStep) Apply(compiler.RunContext) error { return s.applyErr }

func (s *stubStep) Explain(compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation("stub", "", nil)
}

func runReport(t *testing.T, steps ...compiler.Step) *execution.Report {
	t.Helper()
	p, err := execution.NewProvisioner(logging.NewNopLogger())
	require.NoError(t, err)
	report, _ := p.Run(context.Background(), steps)
	require.NotNil(t, report)
	return report
}

func TestTextfileWriter_SuccessfulRun(t *testing.T) {
	report := runReport(t,
		&stubStep{id: compiler.MustNewStepID("yum:install:docker"), satisfied: true},
		&stubStep{id: compiler.MustNewStepID("yum:install:git")},
	)

	path := filepath.Join(t.TempDir(), "textfile", "labelhost.prom")
	w := NewTextfileWriter(path)
	require.NoError(t, w.Write(report))
	assert.Equal(t, path, w.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "labelhost_last_run_success 1")
	assert.Contains(t, out, "labelhost_last_run_dry_run 0")
	assert.Contains(t, out, `labelhost_last_run_steps{outcome="applied"} 1`)
	assert.Contains(t, out, `labelhost_last_run_steps{outcome="satisfied"} 1`)
	assert.Contains(t, out, `labelhost_last_run_steps{outcome="failed"} 0`)
	assert.Contains(t, out, `labelhost_step_duration_seconds{outcome="applied",step="yum:install:git"}`)
	assert.Contains(t, out, `labelhost_step_duration_seconds{outcome="satisfied",step="yum:install:docker"}`)
	assert.Contains(t, out, "# HELP labelhost_last_run_timestamp_seconds")
}

func TestTextfileWriter_FailedRun(t *testing.T) {
	report := runReport(t,
		&stubStep{id: compiler.MustNewStepID("binary:download:docker-compose"), applyErr: errors.New("connection reset")},
		&stubStep{id: compiler.MustNewStepID("git:clone:/opt/cvat")},
	)

	path := filepath.Join(t.TempDir(), "labelhost.prom")
	require.NoError(t, NewTextfileWriter(path).Write(report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "labelhost_last_run_success 0")
	assert.Contains(t, out, `labelhost_last_run_steps{outcome="failed"} 1`)
	assert.Contains(t, out, `labelhost_last_run_steps{outcome="skipped"} 1`)
	assert.NotContains(t, out, `step="git:clone:/opt/cvat"`)
}
