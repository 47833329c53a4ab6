package execution

import (
	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
)

// PlanEntry is the outcome of checking one step.
type PlanEntry struct {
	step        compiler.Step
	status      compiler.StepStatus
	diff        compiler.Diff
	provisional bool
}

// Step returns the checked step.
func (e PlanEntry) Step() compiler.Step {
	return e.step
}

// Status returns the checked status.
func (e PlanEntry) Status() compiler.StepStatus {
	return e.status
}

// Diff returns the planned change; empty unless the step needs applying or
// its check failed.
func (e PlanEntry) Diff() compiler.Diff {
	return e.diff
}

// Provisional reports whether the step was checked after an earlier step
// that still has to apply. Its status describes the host before that change
// and may differ when the run actually reaches it.
func (e PlanEntry) Provisional() bool {
	return e.provisional
}

// PlanSummary counts plan entries by status.
type PlanSummary struct {
	Total       int
	NeedsApply  int
	Satisfied   int
	Unknown     int
	Provisional int
}

// Plan is a preview of a run: every step checked, in order, against the
// host as it is now.
type Plan struct {
	entries []PlanEntry
	changed bool
}

// NewPlan creates an empty Plan.
func NewPlan() *Plan {
	return &Plan{entries: make([]PlanEntry, 0)}
}

// Record appends the outcome of checking step. Once a step needs applying
// or could not be checked, every later entry is provisional.
func (p *Plan) Record(step compiler.Step, status compiler.StepStatus, diff compiler.Diff) PlanEntry {
	entry := PlanEntry{step: step, status: status, diff: diff, provisional: p.changed}
	p.entries = append(p.entries, entry)
	if status == compiler.StatusNeedsApply || status == compiler.StatusUnknown {
		p.changed = true
	}
	return entry
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// Entries returns all entries in step order.
func (p *Plan) Entries() []PlanEntry {
	return p.entries
}

// HasChanges reports whether any step needs applying.
func (p *Plan) HasChanges() bool {
	for _, e := range p.entries {
		if e.status == compiler.StatusNeedsApply {
			return true
		}
	}
	return false
}

// Summary returns aggregate statistics.
func (p *Plan) Summary() PlanSummary {
	summary := PlanSummary{Total: len(p.entries)}
	for _, e := range p.entries {
		switch e.status {
		case compiler.StatusNeedsApply:
			summary.NeedsApply++
		case compiler.StatusSatisfied:
			summary.Satisfied++
		case compiler.StatusUnknown:
			summary.Unknown++
		}
		if e.provisional {
			summary.Provisional++
		}
	}
	return summary
}
