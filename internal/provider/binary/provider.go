// Package binary installs standalone executables downloaded over HTTP.
package binary

import (
	"path"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// Provider implements the compiler.Provider interface for the Compose binary.
type Provider struct {
	runner     ports.CommandRunner
	downloader ports.Downloader
}

// NewProvider creates a new binary provider.
func NewProvider(runner ports.CommandRunner, downloader ports.Downloader) *Provider {
	return &Provider{runner: runner, downloader: downloader}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "binary"
}

// Compile emits the Compose download step.
func (p *Provider) Compile(ctx compiler.CompileContext) ([]compiler.Step, error) {
	cfg := ctx.Config()
	if cfg == nil || cfg.Compose.Destination == "" {
		return nil, nil
	}

	spec := Spec{
		Name:        path.Base(cfg.Compose.Destination),
		URL:         cfg.Compose.ResolvedURL(),
		Destination: cfg.Compose.Destination,
		SHA256:      cfg.Compose.SHA256,
		Version:     cfg.Compose.Version,
		VersionArgs: []string{"version", "--short"},
	}

	return []compiler.Step{NewDownloadStep(spec, p.runner, p.downloader)}, nil
}

// Ensure Provider implements compiler.Provider.
var _ compiler.Provider = (*Provider)(nil)
