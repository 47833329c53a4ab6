// Package compiler transforms configuration into an ordered list of
// idempotent provisioning steps: Config → Provider → []Step.
package compiler

import (
	"errors"
)

// ErrNilConfig is returned when Compile is called without configuration.
var ErrNilConfig = errors.New("compiler: nil config")

// Compiler orchestrates providers to build the step list.
type Compiler struct {
	providers []Provider
}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{
		providers: make([]Provider, 0),
	}
}

// RegisterProvider adds a provider to the compiler.
// Providers are called in registration order, and that order is the
// execution order.
func (c *Compiler) RegisterProvider(provider Provider) {
	c.providers = append(c.providers, provider)
}

// Providers returns all registered providers.
func (c *Compiler) Providers() []Provider {
	return c.providers
}

// Compile transforms configuration into the ordered step list.
// Steps keep the order providers emit them in; the compiler never reorders.
func (c *Compiler) Compile(ctx CompileContext) ([]Step, error) {
	if ctx.Config() == nil {
		return nil, ErrNilConfig
	}

	steps := make([]Step, 0)
	seen := make(map[string]bool)

	for _, provider := range c.providers {
		compiled, err := provider.Compile(ctx)
		if err != nil {
			return nil, NewProviderFailedError(provider.Name(), err)
		}

		for _, step := range compiled {
			id := step.ID().String()
			if seen[id] {
				return nil, NewStepDuplicateError(provider.Name(), id)
			}
			seen[id] = true
			steps = append(steps, step)
		}
	}

	return steps, nil
}
