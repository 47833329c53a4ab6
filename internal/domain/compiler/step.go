package compiler

// Step is one idempotent provisioning action.
// Check is the idempotence predicate: StatusSatisfied means the effect is
// already present on the host and Apply must not run.
type Step interface {
	// ID returns the unique identifier for this step, used in logs.
	ID() StepID

	// Check determines the current status of this step.
	// Returns StatusSatisfied if no action needed, StatusNeedsApply if changes required.
	Check(ctx RunContext) (StepStatus, error)

	// Plan returns the diff describing what changes this step will make.
	Plan(ctx RunContext) (Diff, error)

	// Apply executes the step's changes.
	Apply(ctx RunContext) error

	// Explain returns human-readable context for this step.
	Explain(ctx ExplainContext) Explanation
}
