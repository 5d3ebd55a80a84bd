package plan

import (
	"context"
	"errors"
	"fmt"

	"score/internal/domain"
)

// Built-in action ids
const (
	ActionNoop       domain.ActionID = "action.noop"
	ActionAssign     domain.ActionID = "action.assign"
	ActionFail       domain.ActionID = "action.fail"
	ActionSetOutcome domain.ActionID = "action.outcome"
)

// ErrActionFailed is returned by action.fail
var ErrActionFailed = errors.New("action failed")

func noop(context.Context, *domain.Execution, domain.StepData) error {
	return nil
}

// assign copies data["values"] into the execution variables
func assign(_ context.Context, execution *domain.Execution, data domain.StepData) error {
	values, ok := data["values"].(map[string]any)
	if !ok {
		return nil
	}
	for k, v := range values {
		execution.Variables[k] = v
	}
	return nil
}

func fail(_ context.Context, _ *domain.Execution, data domain.StepData) error {
	if reason, ok := data["reason"].(string); ok && reason != "" {
		return fmt.Errorf("%w: %s", ErrActionFailed, reason)
	}
	return ErrActionFailed
}

// setOutcome publishes data["outcome"], or the string value of the
// variable named by data["from"]
func setOutcome(_ context.Context, execution *domain.Execution, data domain.StepData) error {
	if outcome, ok := data["outcome"].(string); ok {
		execution.SystemContext.Outcome = outcome
		return nil
	}
	if from, ok := data["from"].(string); ok {
		execution.SystemContext.Outcome = fmt.Sprint(execution.Variables[from])
	}
	return nil
}
