package domain

// SystemContext holds engine-owned run-time markers carried inside the
// execution payload. Flow code never writes here.
type SystemContext struct {
	// BranchID is set only on executions spawned by a split. Empty means main line.
	BranchID string `json:"branch_id,omitempty"`
	// SplitID identifies the split that spawned this branch.
	SplitID string `json:"split_id,omitempty"`
	// BranchIndex is the position of this branch within its split.
	BranchIndex int `json:"branch_index,omitempty"`
	// NoWorkerInGroupName is set exactly when dispatch found no capacity in that group.
	NoWorkerInGroupName string `json:"no_worker_in_group_name,omitempty"`
	// StepErrorKey carries the failure reason of the last step, if any.
	StepErrorKey string `json:"step_error_key,omitempty"`
	// Outcome is the outcome name published by the last executed action.
	Outcome string `json:"outcome,omitempty"`
}

// Execution is the flow's live state, serialized into every queue message.
type Execution struct {
	ExecutionID   int64          `json:"execution_id"`
	FlowID        string         `json:"flow_id"`
	Position      *int64         `json:"position"` // nil means terminal
	Variables     map[string]any `json:"variables"`
	SystemContext SystemContext  `json:"system_context"`
}

// NewExecution starts a main-line execution at the given step
func NewExecution(executionID int64, flowID string, beginStepID int64, variables map[string]any) *Execution {
	if variables == nil {
		variables = make(map[string]any)
	}
	return &Execution{
		ExecutionID: executionID,
		FlowID:      flowID,
		Position:    StepRef(beginStepID),
		Variables:   variables,
	}
}

// IsBranch reports whether this context is one participant of a split
func (e *Execution) IsBranch() bool {
	return e != nil && e.SystemContext.BranchID != ""
}

// FailedBecauseNoWorker reports whether dispatch failed for lack of capacity
func (e *Execution) FailedBecauseNoWorker() bool {
	return e != nil && e.SystemContext.NoWorkerInGroupName != ""
}

// Failed reports whether the last step recorded an error
func (e *Execution) Failed() bool {
	return e != nil && e.SystemContext.StepErrorKey != ""
}

// MarkFailed records a step failure unless one is already present
func (e *Execution) MarkFailed(reason string) {
	if e.SystemContext.StepErrorKey == "" {
		e.SystemContext.StepErrorKey = reason
	}
}

// IsTerminal reports whether navigation has reached the end of the flow
func (e *Execution) IsTerminal() bool {
	return e.Position == nil
}

// Clone returns a deep-enough copy: variables map and position are not shared
func (e *Execution) Clone() *Execution {
	c := *e
	if e.Position != nil {
		c.Position = StepRef(*e.Position)
	}
	c.Variables = make(map[string]any, len(e.Variables))
	for k, v := range e.Variables {
		c.Variables[k] = v
	}
	return &c
}

// StepRef returns a pointer to a step id, for outcome tables and positions
func StepRef(id int64) *int64 {
	return &id
}
