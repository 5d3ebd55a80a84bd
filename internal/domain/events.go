package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a flow-lifecycle event
type EventType string

const (
	EventFlowFinished      EventType = "FLOW_FINISHED"
	EventFlowFailed        EventType = "FLOW_FAILED"
	EventBranchFinished    EventType = "BRANCH_FINISHED"
	EventBranchFailed      EventType = "BRANCH_FAILED"
	EventNoWorkerAvailable EventType = "NO_WORKER_AVAILABLE"
)

// LifecycleEvent is published to the event bus. Events describe terminal
// facts; the queue stays the source of truth.
type LifecycleEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	ExecutionID int64     `json:"execution_id"`
	BranchID    string    `json:"branch_id,omitempty"`
	FlowID      string    `json:"flow_id,omitempty"`
	// PauseID is set on NO_WORKER_AVAILABLE only when a new pause was created.
	PauseID   *int64         `json:"pause_id,omitempty"`
	GroupName string         `json:"group_name,omitempty"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt int64          `json:"created_at"`
}

func newLifecycleEvent(eventType EventType, execution *Execution) *LifecycleEvent {
	return &LifecycleEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		ExecutionID: execution.ExecutionID,
		BranchID:    execution.SystemContext.BranchID,
		FlowID:      execution.FlowID,
		CreatedAt:   time.Now().UnixMilli(),
	}
}

func NewFlowFinishedEvent(execution *Execution) *LifecycleEvent {
	ev := newLifecycleEvent(EventFlowFinished, execution)
	ev.Data = execution.Variables
	return ev
}

func NewFlowFailedEvent(execution *Execution) *LifecycleEvent {
	ev := newLifecycleEvent(EventFlowFailed, execution)
	ev.Error = execution.SystemContext.StepErrorKey
	return ev
}

func NewBranchFinishedEvent(execution *Execution) *LifecycleEvent {
	return newLifecycleEvent(EventBranchFinished, execution)
}

func NewBranchFailedEvent(execution *Execution) *LifecycleEvent {
	ev := newLifecycleEvent(EventBranchFailed, execution)
	ev.Error = execution.SystemContext.StepErrorKey
	return ev
}

func NewNoWorkerEvent(execution *Execution, pauseID *int64) *LifecycleEvent {
	ev := newLifecycleEvent(EventNoWorkerAvailable, execution)
	ev.PauseID = pauseID
	ev.GroupName = execution.SystemContext.NoWorkerInGroupName
	return ev
}
