// Package compose builds and starts the application's containers and runs
// the admin bootstrap inside them.
package compose

import (
	"path"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// Provider implements the compiler.Provider interface for Compose projects.
type Provider struct {
	runner      ports.CommandRunner
	hasTerminal func() bool
}

// NewProvider creates a new compose provider. hasTerminal reports whether
// an operator terminal is attached; the admin bootstrap refuses to run
// without one.
func NewProvider(runner ports.CommandRunner, hasTerminal func() bool) *Provider {
	if hasTerminal == nil {
		hasTerminal = func() bool { return false }
	}
	return &Provider{runner: runner, hasTerminal: hasTerminal}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "compose"
}

// Compile emits build, up and, unless skipped, the admin bootstrap.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	cfg := ctx.Config()
	if cfg == nil || cfg.Repository.Dir == "" {
		return nil, nil
	}

	project := Project{
		Name:   path.Base(cfg.Repository.Dir),
		Dir:    cfg.Repository.Dir,
		BinDir: cfg.Compose.BinDir(),
		Binary: path.Base(cfg.Compose.Destination),
	}

	steps := []compiler.Step{
		NewBuildStep(project, p.runner),
		NewUpStep(project, p.runner),
	}

	if !cfg.Container.SkipAdmin && len(cfg.Container.AdminCommand) > 0 {
		steps = append(steps, NewExecStep(ExecSpec{
			Container:    cfg.Container.Name,
			Command:      cfg.Container.AdminCommand,
			CheckCommand: cfg.Container.CheckCommand,
			CheckExpect:  cfg.Container.CheckExpect,
		}, p.runner, p.hasTerminal))
	}

	return steps, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
