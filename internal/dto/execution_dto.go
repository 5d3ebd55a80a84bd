package dto

// StartExecutionRequest represents request to launch a flow
type StartExecutionRequest struct {
	Variables map[string]any `json:"variables"`
}

// StartExecutionResponse represents response after launching a flow
type StartExecutionResponse struct {
	ExecutionID int64  `json:"execution_id"`
	FlowID      string `json:"flow_id"`
}

// PauseExecutionRequest represents request to pause an execution
type PauseExecutionRequest struct {
	// No body fields - execution id comes from path params, branch_id from query
}

// PauseExecutionResponse represents response after pausing an execution.
// PauseID is empty when the execution was already paused.
type PauseExecutionResponse struct {
	ExecutionID   int64  `json:"execution_id"`
	BranchID      string `json:"branch_id,omitempty"`
	PauseID       *int64 `json:"pause_id,omitempty"`
	AlreadyPaused bool   `json:"already_paused"`
}

// GetPauseRequest represents request to read a pause record
type GetPauseRequest struct {
	// No body fields
}

// GetPauseResponse represents a pause record
type GetPauseResponse struct {
	PauseID     int64  `json:"pause_id"`
	ExecutionID int64  `json:"execution_id"`
	BranchID    string `json:"branch_id,omitempty"`
	Reason      string `json:"reason"`
	HasSnapshot bool   `json:"has_snapshot"`
	PausedAt    int64  `json:"paused_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// ResumeExecutionRequest represents request to resume an execution
type ResumeExecutionRequest struct {
	// No body fields
}

// ResumeExecutionResponse reports whether a context was re-enqueued
type ResumeExecutionResponse struct {
	ExecutionID int64  `json:"execution_id"`
	BranchID    string `json:"branch_id,omitempty"`
	Resumed     bool   `json:"resumed"`
}
