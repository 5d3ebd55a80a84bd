package domain

import "time"

// PauseReason explains why an execution was parked
type PauseReason string

const (
	PauseReasonNoWorkersInGroup PauseReason = "NO_WORKERS_IN_GROUP"
	PauseReasonUserPaused       PauseReason = "USER_PAUSED"
)

// EmptyBranch is the branch key of the main line
const EmptyBranch = ""

// PausedExecution marks (ExecutionID, BranchID) as parked
type PausedExecution struct {
	PauseID     int64       `json:"pause_id" dynamodbav:"pause_id"`
	ExecutionID int64       `json:"execution_id" dynamodbav:"execution_id"`
	BranchID    string      `json:"branch_id" dynamodbav:"branch_id"`
	Reason      PauseReason `json:"reason" dynamodbav:"reason"`
	// Snapshot is the encoded execution context to re-enqueue on resume.
	Snapshot  []byte `json:"snapshot,omitempty" dynamodbav:"snapshot,omitempty"`
	PausedAt  int64  `json:"paused_at" dynamodbav:"paused_at"`
	UpdatedAt int64  `json:"updated_at" dynamodbav:"updated_at"`
}

// NewPausedExecution creates a pause record without a snapshot
func NewPausedExecution(pauseID, executionID int64, branchID string, reason PauseReason) *PausedExecution {
	now := time.Now().UnixMilli()
	return &PausedExecution{
		PauseID:     pauseID,
		ExecutionID: executionID,
		BranchID:    branchID,
		Reason:      reason,
		PausedAt:    now,
		UpdatedAt:   now,
	}
}

// HasSnapshot reports whether a context was written for this pause
func (p *PausedExecution) HasSnapshot() bool {
	return len(p.Snapshot) > 0
}
