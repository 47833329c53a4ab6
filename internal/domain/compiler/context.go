package compiler

import (
	"context"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// RunContext provides context for step execution (Check, Plan, Apply).
// It carries the scoped command environment instead of relying on the
// process working directory or a mutated PATH.
type RunContext struct {
	ctx       context.Context
	dryRun    bool
	extraPath []string
	workDir   string
}

// NewRunContext creates a new RunContext with the given context.
func NewRunContext(ctx context.Context) RunContext {
	return RunContext{ctx: ctx}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// DryRun returns whether this is a dry-run execution.
func (r RunContext) DryRun() bool {
	return r.dryRun
}

// WithDryRun returns a new RunContext with the dry-run flag set.
func (r RunContext) WithDryRun(dryRun bool) RunContext {
	r.dryRun = dryRun
	return r
}

// WithExtraPath returns a RunContext whose commands see dirs prepended to PATH.
func (r RunContext) WithExtraPath(dirs ...string) RunContext {
	merged := make([]string, 0, len(r.extraPath)+len(dirs))
	merged = append(merged, r.extraPath...)
	merged = append(merged, dirs...)
	r.extraPath = merged
	return r
}

// WithWorkDir returns a RunContext whose commands run in dir.
func (r RunContext) WithWorkDir(dir string) RunContext {
	r.workDir = dir
	return r
}

// WorkDir returns the working directory for commands, if any.
func (r RunContext) WorkDir() string {
	return r.workDir
}

// CommandOptions returns the options to pass to a ports.CommandRunner.
func (r RunContext) CommandOptions() ports.CommandOptions {
	var extra []string
	if len(r.extraPath) > 0 {
		extra = make([]string, len(r.extraPath))
		copy(extra, r.extraPath)
	}
	return ports.CommandOptions{
		Dir:       r.workDir,
		ExtraPath: extra,
	}
}

// ExplainContext provides context for generating step explanations.
type ExplainContext struct {
	verbose bool
}

// NewExplainContext creates a new ExplainContext.
func NewExplainContext() ExplainContext {
	return ExplainContext{}
}

// Verbose returns whether verbose explanations are requested.
func (e ExplainContext) Verbose() bool {
	return e.verbose
}

// WithVerbose returns a new ExplainContext with verbose mode set.
func (e ExplainContext) WithVerbose(verbose bool) ExplainContext {
	e.verbose = verbose
	return e
}
