// Package git clones the deployment repository at a pinned reference.
package git

import (
	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/domain/config"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// Provider implements the compiler.Provider interface for git checkouts.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new git provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "git"
}

// Compile emits the clone step. A missing ref is a configuration error:
// a floating default branch would make re-runs non-reproducible.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	cfg := ctx.Config()
	if cfg == nil || cfg.Repository.URL == "" {
		return nil, nil
	}
	if cfg.Repository.Ref == "" {
		return nil, config.NewRefRequiredError()
	}

	return []compiler.Step{
		NewCloneStep(cfg.Repository.URL, cfg.Repository.Ref, cfg.Repository.Dir, p.runner),
	}, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
