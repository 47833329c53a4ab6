package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
)

// Report is the outcome of one provisioning run. It holds a result for
// every step, including the ones skipped after a failure.
type Report struct {
	runID      string
	dryRun     bool
	startedAt  time.Time
	finishedAt time.Time
	results    []StepResult
}

// ReportSummary provides aggregate counts for a run.
type ReportSummary struct {
	Total     int
	Applied   int
	Satisfied int
	Pending   int
	Failed    int
	Skipped   int
}

func newReport(dryRun bool, capacity int, now time.Time) *Report {
	return &Report{
		runID:     uuid.NewString(),
		dryRun:    dryRun,
		startedAt: now,
		results:   make([]StepResult, 0, capacity),
	}
}

// RunID returns the unique identifier of the run.
func (r *Report) RunID() string {
	return r.runID
}

// DryRun returns whether the run only checked steps.
func (r *Report) DryRun() bool {
	return r.dryRun
}

// StartedAt returns when the run started.
func (r *Report) StartedAt() time.Time {
	return r.startedAt
}

// FinishedAt returns when the run finished.
func (r *Report) FinishedAt() time.Time {
	return r.finishedAt
}

// Duration returns the wall-clock duration of the run.
func (r *Report) Duration() time.Duration {
	if r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// Results returns the per-step results in execution order.
func (r *Report) Results() []StepResult {
	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// Success returns true when no step failed or was skipped.
func (r *Report) Success() bool {
	for _, res := range r.results {
		if res.status == compiler.StatusFailed || res.status == compiler.StatusSkipped {
			return false
		}
	}
	return true
}

// FailedStep returns the result of the failed step, if any.
func (r *Report) FailedStep() (StepResult, bool) {
	for _, res := range r.results {
		if res.status == compiler.StatusFailed {
			return res, true
		}
	}
	return StepResult{}, false
}

// Summary returns aggregate statistics.
func (r *Report) Summary() ReportSummary {
	summary := ReportSummary{Total: len(r.results)}
	for _, res := range r.results {
		switch {
		case res.applied:
			summary.Applied++
		case res.status == compiler.StatusSatisfied:
			summary.Satisfied++
		case res.status == compiler.StatusNeedsApply:
			summary.Pending++
		case res.status == compiler.StatusFailed:
			summary.Failed++
		case res.status == compiler.StatusSkipped:
			summary.Skipped++
		}
	}
	return summary
}

func (r *Report) add(result StepResult) {
	r.results = append(r.results, result)
}

func (r *Report) skip(steps []compiler.Step) {
	for _, step := range steps {
		r.results = append(r.results, NewStepResult(step.ID(), compiler.StatusSkipped, nil))
	}
}

func (r *Report) finish(now time.Time) {
	r.finishedAt = now
}
