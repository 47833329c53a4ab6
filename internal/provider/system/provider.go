// Package system provides the host-level steps: privilege check, package
// installation, service start and enablement, and group membership.
package system

import (
	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// Provider implements the compiler.Provider interface for host setup.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new system provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "system"
}

// Compile emits, in order: the privilege check, one install step per
// package, service start, service enable, and group membership.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	cfg := ctx.Config()
	if cfg == nil {
		return nil, nil
	}

	steps := make([]compiler.Step, 0, len(cfg.Packages)+4)
	steps = append(steps, NewPrivilegeStep(p.runner))

	for _, pkg := range cfg.Packages {
		steps = append(steps, NewPackageStep(pkg, p.runner))
	}

	if cfg.Service != "" {
		steps = append(steps,
			NewServiceStartStep(cfg.Service, p.runner),
			NewServiceEnableStep(cfg.Service, p.runner),
		)
	}

	if cfg.User != "" && cfg.Group != "" {
		steps = append(steps, NewGroupMembershipStep(cfg.User, cfg.Group, p.runner))
	}

	return steps, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
