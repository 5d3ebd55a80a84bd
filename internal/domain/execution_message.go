package domain

import "time"

// MessageStatus is the queue-level lifecycle status of an execution message
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "PENDING"
	MessageStatusAssigned   MessageStatus = "ASSIGNED"
	MessageStatusInProgress MessageStatus = "IN_PROGRESS"
	MessageStatusSuccess    MessageStatus = "SUCCESS"
	MessageStatusFailure    MessageStatus = "FAILURE"
	MessageStatusTerminated MessageStatus = "TERMINATED"
)

// UnassignedWorkerID marks a message no worker has picked up yet
const UnassignedWorkerID = "EMPTY"

// ExecutionMessage is the unit of queue transport. Messages are never
// mutated after terminal classification; a new message is produced instead.
type ExecutionMessage struct {
	MessageID int64         `json:"message_id"`
	UniqueID  string        `json:"unique_id"`
	WorkerID  string        `json:"worker_id"`
	Status    MessageStatus `json:"status"`
	Payload   []byte        `json:"payload"`
	CreatedAt int64         `json:"created_at"`
}

// NewExecutionMessage wraps an encoded execution payload
func NewExecutionMessage(messageID int64, uniqueID string, status MessageStatus, payload []byte) *ExecutionMessage {
	return &ExecutionMessage{
		MessageID: messageID,
		UniqueID:  uniqueID,
		WorkerID:  UnassignedWorkerID,
		Status:    status,
		Payload:   payload,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// IsTerminated reports whether the flow (or branch) behind this message ended normally
func (m *ExecutionMessage) IsTerminated() bool {
	return m.Status == MessageStatusTerminated
}

// IsFailed reports whether the message carries a failure
func (m *ExecutionMessage) IsFailed() bool {
	return m.Status == MessageStatusFailure
}
