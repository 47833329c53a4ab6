package execution

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
)

// Planner checks every step up front without applying anything.
type Planner struct{}

// NewPlanner creates a new Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan generates a Plan by checking each step's status in order.
// A step whose check errors is recorded as unknown with the error as its
// diff value, and planning continues.
func (p *Planner) Plan(ctx context.Context, steps []compiler.Step) (*Plan, error) {
	plan := NewPlan()
	runCtx := compiler.NewRunContext(ctx).WithDryRun(true)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, diff, err := p.planStep(step, runCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to plan step %q: %w", step.ID().String(), err)
		}
		plan.Record(step, status, diff)
	}

	return plan, nil
}

// planStep checks a single step and, when it needs applying, asks for its
// diff. A failed check becomes StatusUnknown with the error as the diff.
func (p *Planner) planStep(step compiler.Step, ctx compiler.RunContext) (compiler.StepStatus, compiler.Diff, error) {
	status, err := step.Check(ctx)
	if err != nil {
		return compiler.StatusUnknown, compiler.NewDiff(compiler.DiffTypeNone, "check", step.ID().String(), "", err.Error()), nil
	}
	if status != compiler.StatusNeedsApply {
		return status, compiler.Diff{}, nil
	}

	diff, err := step.Plan(ctx)
	if err != nil {
		return status, compiler.Diff{}, fmt.Errorf("plan failed: %w", err)
	}
	return status, diff, nil
}
