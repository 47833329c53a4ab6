package compiler

import "github.com/felixgeelhaar/labelhost/internal/domain/config"

// Provider compiles a section of configuration into executable steps.
// Each provider handles one kind of host resource (packages, services, git, ...).
type Provider interface {
	// Name returns the provider's identifier (e.g., "system", "git").
	Name() string

	// Compile transforms configuration into an ordered list of steps.
	Compile(ctx CompileContext) ([]Step, error)
}

// CompileContext provides configuration data to providers during compilation.
type CompileContext struct {
	config *config.Config
}

// NewCompileContext creates a new CompileContext with the given configuration.
func NewCompileContext(cfg *config.Config) CompileContext {
	return CompileContext{config: cfg}
}

// Config returns the validated configuration.
func (c CompileContext) Config() *config.Config {
	return c.config
}
