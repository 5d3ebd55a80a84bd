package plan

import (
	"fmt"

	"score/internal/domain"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Built-in navigator ids
const (
	NavigationNext       domain.ActionID = "navigation.next"
	NavigationOutcome    domain.ActionID = "navigation.outcome"
	NavigationExpression domain.ActionID = "navigation.expression"
)

// nextNavigator always answers NEXT
type nextNavigator struct{}

func (nextNavigator) Compile(step *domain.ExecutionStep) (NavigateFunc, error) {
	if _, ok := step.Outcomes[domain.OutcomeNext]; !ok {
		return nil, fmt.Errorf("%w: step %d has no %s outcome", domain.ErrInvalidPlan, step.StepID, domain.OutcomeNext)
	}
	return func(*domain.Execution) (string, error) {
		return domain.OutcomeNext, nil
	}, nil
}

// outcomeNavigator answers the outcome the action published
type outcomeNavigator struct{}

func (outcomeNavigator) Compile(step *domain.ExecutionStep) (NavigateFunc, error) {
	stepID := step.StepID
	return func(execution *domain.Execution) (string, error) {
		outcome := execution.SystemContext.Outcome
		if outcome == "" {
			return "", fmt.Errorf("%w: step %d published no outcome", domain.ErrUnknownOutcome, stepID)
		}
		return outcome, nil
	}, nil
}

type answer struct {
	outcome string
	program *vm.Program
}

// expressionNavigator evaluates navigationData["answers"], an ordered list of
// {"outcome": name, "when": expression}, against the execution variables.
// The first true answer wins; navigationData["default"] applies otherwise.
type expressionNavigator struct{}

func (expressionNavigator) Compile(step *domain.ExecutionStep) (NavigateFunc, error) {
	raw, ok := step.NavigationData["answers"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: step %d has no answers", domain.ErrInvalidPlan, step.StepID)
	}

	answers := make([]answer, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: step %d answer %d is not an object", domain.ErrInvalidPlan, step.StepID, i)
		}
		outcome, _ := entry["outcome"].(string)
		when, _ := entry["when"].(string)
		if _, ok := step.Outcomes[outcome]; !ok {
			return nil, fmt.Errorf("%w: step %d answer %q", domain.ErrUnknownOutcome, step.StepID, outcome)
		}

		program, err := expr.Compile(when, expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: step %d answer %q: %v", domain.ErrInvalidPlan, step.StepID, outcome, err)
		}
		answers = append(answers, answer{outcome: outcome, program: program})
	}

	fallback, hasFallback := step.NavigationData["default"].(string)
	if hasFallback {
		if _, ok := step.Outcomes[fallback]; !ok {
			return nil, fmt.Errorf("%w: step %d default %q", domain.ErrUnknownOutcome, step.StepID, fallback)
		}
	}

	stepID := step.StepID
	return func(execution *domain.Execution) (string, error) {
		env := make(map[string]any, len(execution.Variables)+1)
		for k, v := range execution.Variables {
			env[k] = v
		}
		env["outcome"] = execution.SystemContext.Outcome

		for _, a := range answers {
			result, err := expr.Run(a.program, env)
			if err != nil {
				return "", fmt.Errorf("failed to evaluate answer %q of step %d: %w", a.outcome, stepID, err)
			}
			if matched, _ := result.(bool); matched {
				return a.outcome, nil
			}
		}
		if hasFallback {
			return fallback, nil
		}
		return "", fmt.Errorf("%w: no answer of step %d matched", domain.ErrUnknownOutcome, stepID)
	}, nil
}
