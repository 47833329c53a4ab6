package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// ErrAlreadyRunning is returned when Run is called while a run is in progress.
var ErrAlreadyRunning = errors.New("provisioner is already running")

// Observer receives step progress. Calls happen on the provisioning
// goroutine, in step order.
type Observer interface {
	StepStarted(index, total int, stepID compiler.StepID)
	StepFinished(index, total int, result StepResult)
}

// Provisioner executes steps strictly in order, skipping satisfied ones and
// stopping at the first failure. It never retries and never rolls back.
type Provisioner struct {
	logger    ports.Logger
	lifecycle *lifecycle
	observers []Observer
	dryRun    bool
	now       func() time.Time

	mu sync.Mutex
}

// NewProvisioner creates a Provisioner in the not_started state.
func NewProvisioner(logger ports.Logger) (*Provisioner, error) {
	lc, err := newLifecycle()
	if err != nil {
		return nil, err
	}
	return &Provisioner{
		logger:    logger,
		lifecycle: lc,
		now:       time.Now,
	}, nil
}

// SetDryRun makes subsequent runs check every step without applying any.
func (p *Provisioner) SetDryRun(dryRun bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dryRun = dryRun
}

// AddObserver registers an observer for subsequent runs.
func (p *Provisioner) AddObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// State returns the lifecycle state.
func (p *Provisioner) State() State {
	return p.lifecycle.state()
}

// Position returns the step the lifecycle is at.
func (p *Provisioner) Position() Position {
	return p.lifecycle.position()
}

// Runs returns how many runs have been started.
func (p *Provisioner) Runs() int {
	return p.lifecycle.runs()
}

// Run executes steps in order. For each step it calls Check and, unless the
// step is satisfied, Apply. The first check or apply error ends the run:
// the step is recorded as failed, the remaining steps as skipped, and a
// *compiler.ProvisioningError naming the step is returned with the report.
func (p *Provisioner) Run(ctx context.Context, steps []compiler.Step) (*Report, error) {
	if !p.mu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer p.mu.Unlock()

	if err := p.lifecycle.start(); err != nil {
		return nil, err
	}

	report := newReport(p.dryRun, len(steps), p.now())
	runCtx := compiler.NewRunContext(ctx).WithDryRun(p.dryRun)
	total := len(steps)

	p.logger.Info(ctx, "provisioning started",
		ports.F("run_id", report.RunID()),
		ports.F("steps", total),
		ports.F("dry_run", p.dryRun),
	)

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			report.skip(steps[i:])
			report.finish(p.now())
			p.lifecycle.fail(Position{Index: i, StepID: step.ID().String(), Err: err})
			p.logger.Warn(ctx, "provisioning interrupted", ports.F("step", step.ID().String()), ports.Err(err))
			return report, fmt.Errorf("interrupted before step %q: %w", step.ID().String(), err)
		}

		p.lifecycle.advance(i, step.ID().String())
		p.notifyStarted(i, total, step.ID())

		result, err := p.runStep(runCtx, step)
		report.add(result)
		p.notifyFinished(i, total, result)

		if err != nil {
			report.skip(steps[i+1:])
			report.finish(p.now())
			p.lifecycle.fail(Position{Index: i, StepID: step.ID().String(), Err: err})
			return report, err
		}
	}

	report.finish(p.now())
	p.lifecycle.succeed()

	summary := report.Summary()
	p.logger.Info(ctx, "provisioning finished",
		ports.F("run_id", report.RunID()),
		ports.F("applied", summary.Applied),
		ports.F("satisfied", summary.Satisfied),
		ports.F("pending", summary.Pending),
		ports.F("duration", report.Duration().String()),
	)
	return report, nil
}

// runStep performs check-then-apply for one step.
func (p *Provisioner) runStep(ctx compiler.RunContext, step compiler.Step) (StepResult, error) {
	id := step.ID()
	log := p.logger.With(ports.F("step", id.String()))
	start := p.now()

	log.Debug(ctx.Context(), "checking")
	status, err := step.Check(ctx)
	if err != nil {
		log.Error(ctx.Context(), "failed", ports.F("phase", compiler.PhaseCheck), ports.Err(err))
		provErr := &compiler.ProvisioningError{Step: id, Phase: compiler.PhaseCheck, Cause: err}
		return NewStepResult(id, compiler.StatusFailed, provErr).WithDuration(p.now().Sub(start)), provErr
	}

	if status == compiler.StatusSatisfied {
		log.Info(ctx.Context(), "already satisfied")
		return NewStepResult(id, compiler.StatusSatisfied, nil).WithDuration(p.now().Sub(start)), nil
	}

	diff, planErr := step.Plan(ctx)
	if planErr != nil {
		log.Debug(ctx.Context(), "plan unavailable", ports.Err(planErr))
	}

	if ctx.DryRun() {
		log.Info(ctx.Context(), "would apply", ports.F("change", diff.Summary()))
		return NewStepResult(id, compiler.StatusNeedsApply, nil).
			WithDiff(diff).
			WithDuration(p.now().Sub(start)), nil
	}

	log.Info(ctx.Context(), "applying")
	if err := step.Apply(ctx); err != nil {
		log.Error(ctx.Context(), "failed", ports.F("phase", compiler.PhaseApply), ports.Err(err))
		provErr := &compiler.ProvisioningError{Step: id, Phase: compiler.PhaseApply, Cause: err}
		return NewStepResult(id, compiler.StatusFailed, provErr).
			WithDiff(diff).
			WithDuration(p.now().Sub(start)), provErr
	}

	duration := p.now().Sub(start)
	log.Info(ctx.Context(), "applied", ports.F("duration", duration.String()))
	return NewStepResult(id, compiler.StatusSatisfied, nil).
		WithApplied().
		WithDiff(diff).
		WithDuration(duration), nil
}

func (p *Provisioner) notifyStarted(index, total int, id compiler.StepID) {
	for _, o := range p.observers {
		o.StepStarted(index, total, id)
	}
}

func (p *Provisioner) notifyFinished(index, total int, result StepResult) {
	for _, o := range p.observers {
		o.StepFinished(index, total, result)
	}
}
