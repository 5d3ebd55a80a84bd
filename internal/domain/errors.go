package domain

import "errors"

// Configuration errors. They abort the affected execution's navigation and
// are never recovered by guessing a next step.
var (
	ErrUnknownOutcome = errors.New("unknown outcome name")
	ErrUnknownStep    = errors.New("step not found in plan")
	ErrUnknownAction  = errors.New("action not registered")
	ErrInvalidPlan    = errors.New("invalid execution plan")
)

// IsConfigurationError reports whether err stems from a broken plan
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnknownOutcome) ||
		errors.Is(err, ErrUnknownStep) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidPlan)
}
