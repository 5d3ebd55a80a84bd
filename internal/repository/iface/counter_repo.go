package repository

import "context"

// Counter names
const (
	CounterMessageID = "message_id"
	CounterPauseID   = "pause_id"
	CounterExecution = "execution_id"
)

// CounterRepository hands out named monotonic sequence values (starting at 1)
type CounterRepository interface {
	Increment(ctx context.Context, name string) (int64, error)
}
