package plan

import (
	"fmt"

	"score/internal/domain"
)

// Resolver is the navigation state machine: a pure (step, outcome) lookup.
// A nil step id means the flow ends.
type Resolver interface {
	Next(stepID int64, outcome string) (*int64, error)
}

// CompiledStep is a step with its capabilities resolved
type CompiledStep struct {
	*domain.ExecutionStep
	Action   Action
	Navigate NavigateFunc
}

// CompiledPlan is immutable after Compile and safe to share
type CompiledPlan struct {
	plan  *domain.ExecutionPlan
	steps map[int64]*CompiledStep
}

var _ Resolver = (*CompiledPlan)(nil)

// Compile validates the plan against the registry. Every outcome target must
// be a step of the plan or nil, so lookups never meet a dangling reference.
func Compile(p *domain.ExecutionPlan, registry *Registry) (*CompiledPlan, error) {
	if p == nil || p.FlowID == "" {
		return nil, fmt.Errorf("%w: missing flow id", domain.ErrInvalidPlan)
	}
	if _, ok := p.Step(p.BeginStepID); !ok {
		return nil, fmt.Errorf("%w: begin step %d of flow %s", domain.ErrUnknownStep, p.BeginStepID, p.FlowID)
	}

	compiled := &CompiledPlan{
		plan:  p,
		steps: make(map[int64]*CompiledStep, len(p.Steps)),
	}

	for id, step := range p.Steps {
		if step == nil {
			return nil, fmt.Errorf("%w: step %d of flow %s is null", domain.ErrInvalidPlan, id, p.FlowID)
		}
		if step.StepID != id {
			return nil, fmt.Errorf("%w: step keyed %d declares id %d", domain.ErrInvalidPlan, id, step.StepID)
		}
		for outcome, target := range step.Outcomes {
			if target == nil {
				continue
			}
			if _, ok := p.Step(*target); !ok {
				return nil, fmt.Errorf("%w: step %d outcome %s points to %d", domain.ErrUnknownStep, id, outcome, *target)
			}
		}

		cs, err := compileStep(p, step, registry)
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", p.FlowID, err)
		}
		compiled.steps[id] = cs
	}

	return compiled, nil
}

func compileStep(p *domain.ExecutionPlan, step *domain.ExecutionStep, registry *Registry) (*CompiledStep, error) {
	if step.IsSplit() {
		return compileSplit(p, step)
	}

	action, err := registry.Action(step.Action)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", step.StepID, err)
	}
	navigator, err := registry.Navigator(step.NavigationAction)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", step.StepID, err)
	}
	navigate, err := navigator.Compile(step)
	if err != nil {
		return nil, err
	}

	return &CompiledStep{ExecutionStep: step, Action: action, Navigate: navigate}, nil
}

func compileSplit(p *domain.ExecutionPlan, step *domain.ExecutionStep) (*CompiledStep, error) {
	spec := step.Split
	if _, ok := p.Step(spec.BranchBeginStepID); !ok {
		return nil, fmt.Errorf("%w: split step %d branch begin %d", domain.ErrUnknownStep, step.StepID, spec.BranchBeginStepID)
	}
	if spec.ItemsVariable == "" && spec.Arity <= 0 {
		return nil, fmt.Errorf("%w: split step %d needs an arity or an items variable", domain.ErrInvalidPlan, step.StepID)
	}

	switch spec.JoinPolicy {
	case domain.JoinPolicyIgnoreFailures:
	case domain.JoinPolicyFailOnAny, "":
		if _, ok := step.Outcomes[domain.OutcomeFailure]; !ok {
			return nil, fmt.Errorf("%w: split step %d has no %s outcome", domain.ErrUnknownOutcome, step.StepID, domain.OutcomeFailure)
		}
	default:
		return nil, fmt.Errorf("%w: split step %d join policy %q", domain.ErrInvalidPlan, step.StepID, spec.JoinPolicy)
	}
	if _, ok := step.Outcomes[domain.OutcomeSuccess]; !ok {
		return nil, fmt.Errorf("%w: split step %d has no %s outcome", domain.ErrUnknownOutcome, step.StepID, domain.OutcomeSuccess)
	}

	return &CompiledStep{ExecutionStep: step}, nil
}

func (c *CompiledPlan) FlowID() string {
	return c.plan.FlowID
}

func (c *CompiledPlan) BeginStepID() int64 {
	return c.plan.BeginStepID
}

// Plan returns the source plan
func (c *CompiledPlan) Plan() *domain.ExecutionPlan {
	return c.plan
}

func (c *CompiledPlan) Step(stepID int64) (*CompiledStep, error) {
	step, ok := c.steps[stepID]
	if !ok {
		return nil, fmt.Errorf("%w: %d in flow %s", domain.ErrUnknownStep, stepID, c.plan.FlowID)
	}
	return step, nil
}

func (c *CompiledPlan) Next(stepID int64, outcome string) (*int64, error) {
	step, err := c.Step(stepID)
	if err != nil {
		return nil, err
	}

	target, ok := step.Outcomes[outcome]
	if !ok {
		return nil, fmt.Errorf("%w: %q at step %d in flow %s", domain.ErrUnknownOutcome, outcome, stepID, c.plan.FlowID)
	}
	if target == nil {
		return nil, nil
	}
	return domain.StepRef(*target), nil
}
