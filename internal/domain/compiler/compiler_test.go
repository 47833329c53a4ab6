package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/labelhost/internal/domain/config"
)

type mockStep struct {
	id StepID
}

func newMockStep(id string) *mockStep {
	return &mockStep{id: MustNewStepID(id)}
}

func (m *mockStep) ID() StepID                          { return m.id }
func (m *mockStep) Check(RunContext) (StepStatus, error) { return StatusSatisfied, nil }
func (m *mockStep) Plan(RunContext) (Diff, error)       { return Diff{}, nil }
func (m *mockStep) Apply(RunContext) error              { return nil }
func (m *mockStep) Explain(ExplainContext) Explanation  { return Explanation{} }

type mockProvider struct {
	name  string
	steps []Step
	err   error
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Compile(CompileContext) ([]Step, error) {
	return m.steps, m.err
}

func TestCompiler_PreservesProviderAndStepOrder(t *testing.T) {
	t.Parallel()

	c := NewCompiler()
	c.RegisterProvider(&mockProvider{name: "system", steps: []Step{
		newMockStep("host:privileges"),
		newMockStep("yum:install:docker"),
	}})
	c.RegisterProvider(&mockProvider{name: "git", steps: []Step{
		newMockStep("git:clone:/opt/cvat"),
	}})

	steps, err := c.Compile(NewCompileContext(config.Defaults()))
	require.NoError(t, err)

	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID().String())
	}
	assert.Equal(t, []string{"host:privileges", "yum:install:docker", "git:clone:/opt/cvat"}, ids)
	assert.Len(t, c.Providers(), 2)
}

func TestCompiler_DuplicateStepID(t *testing.T) {
	t.Parallel()

	c := NewCompiler()
	c.RegisterProvider(&mockProvider{name: "system", steps: []Step{
		newMockStep("yum:install:git"),
		newMockStep("yum:install:git"),
	}})

	_, err := c.Compile(NewCompileContext(config.Defaults()))
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, ErrCodeStepDuplicate, stepErr.Code)
	assert.Equal(t, "yum:install:git", stepErr.StepID)
}

func TestCompiler_ProviderFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("repository.ref is required")
	c := NewCompiler()
	c.RegisterProvider(&mockProvider{name: "git", err: cause})

	_, err := c.Compile(NewCompileContext(config.Defaults()))
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, ErrCodeProviderFailed, stepErr.Code)
	assert.Equal(t, "git", stepErr.Provider)
}

func TestCompiler_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCompiler().Compile(NewCompileContext(nil))
	assert.ErrorIs(t, err, ErrNilConfig)
}
