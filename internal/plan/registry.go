package plan

import (
	"context"
	"fmt"
	"sync"

	"score/internal/domain"
)

// Action is a named step capability. It may mutate the execution's variables
// and publish an outcome through its system context.
type Action interface {
	Execute(ctx context.Context, execution *domain.Execution, data domain.StepData) error
}

// ActionFunc allows functions to implement Action
type ActionFunc func(ctx context.Context, execution *domain.Execution, data domain.StepData) error

func (f ActionFunc) Execute(ctx context.Context, execution *domain.Execution, data domain.StepData) error {
	return f(ctx, execution, data)
}

// NavigateFunc returns the outcome name of a finished step
type NavigateFunc func(execution *domain.Execution) (string, error)

// Navigator interprets a step's result. Compile validates the step's
// navigation data once, at plan compile time.
type Navigator interface {
	Compile(step *domain.ExecutionStep) (NavigateFunc, error)
}

// Registry maps stable action ids to capabilities
type Registry struct {
	mu         sync.RWMutex
	actions    map[domain.ActionID]Action
	navigators map[domain.ActionID]Navigator
}

func NewRegistry() *Registry {
	return &Registry{
		actions:    make(map[domain.ActionID]Action),
		navigators: make(map[domain.ActionID]Navigator),
	}
}

// NewDefaultRegistry carries the built-in actions and navigators
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegisterAction(ActionNoop, ActionFunc(noop))
	r.MustRegisterAction(ActionAssign, ActionFunc(assign))
	r.MustRegisterAction(ActionFail, ActionFunc(fail))
	r.MustRegisterAction(ActionSetOutcome, ActionFunc(setOutcome))
	r.MustRegisterNavigator(NavigationNext, nextNavigator{})
	r.MustRegisterNavigator(NavigationOutcome, outcomeNavigator{})
	r.MustRegisterNavigator(NavigationExpression, expressionNavigator{})
	return r
}

func (r *Registry) RegisterAction(id domain.ActionID, action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[id]; exists {
		return fmt.Errorf("action %s already registered", id)
	}
	r.actions[id] = action
	return nil
}

func (r *Registry) MustRegisterAction(id domain.ActionID, action Action) {
	if err := r.RegisterAction(id, action); err != nil {
		panic(err)
	}
}

func (r *Registry) RegisterNavigator(id domain.ActionID, navigator Navigator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.navigators[id]; exists {
		return fmt.Errorf("navigator %s already registered", id)
	}
	r.navigators[id] = navigator
	return nil
}

func (r *Registry) MustRegisterNavigator(id domain.ActionID, navigator Navigator) {
	if err := r.RegisterNavigator(id, navigator); err != nil {
		panic(err)
	}
}

func (r *Registry) Action(id domain.ActionID) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAction, id)
	}
	return action, nil
}

func (r *Registry) Navigator(id domain.ActionID) (Navigator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	navigator, ok := r.navigators[id]
	if !ok {
		return nil, fmt.Errorf("%w: navigator %s", domain.ErrUnknownAction, id)
	}
	return navigator, nil
}
