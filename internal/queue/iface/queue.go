// internal/queue/iface/queue.go
package queue

import (
	"context"

	"score/internal/domain"
)

// UnknownSize is passed to listeners when the transport cannot report its depth
const UnknownSize = -1

// Listener receives lifecycle callbacks from the transport. OnEnqueue and OnPoll
// are observational; OnTerminated and OnFailed get every terminal message of a
// polled batch in delivery order.
type Listener interface {
	OnEnqueue(ctx context.Context, messages []*domain.ExecutionMessage, queueSize int)
	OnPoll(ctx context.Context, messages []*domain.ExecutionMessage, queueSize int)
	OnTerminated(ctx context.Context, messages []*domain.ExecutionMessage)
	OnFailed(ctx context.Context, messages []*domain.ExecutionMessage)
}

// MessageProcessor processes a message and returns true if successful (for deletion)
type MessageProcessor[T any] interface {
	ProcessMessage(ctx context.Context, message T) bool
}

// MessageProcessorFunc allows functions to implement MessageProcessor
type MessageProcessorFunc[T any] func(ctx context.Context, message T) bool

func (f MessageProcessorFunc[T]) ProcessMessage(ctx context.Context, message T) bool {
	return f(ctx, message)
}

// Sender enqueues execution messages
type Sender interface {
	Send(ctx context.Context, messages ...*domain.ExecutionMessage) error
}

// SenderFunc allows functions to implement Sender
type SenderFunc func(ctx context.Context, messages ...*domain.ExecutionMessage) error

func (f SenderFunc) Send(ctx context.Context, messages ...*domain.ExecutionMessage) error {
	return f(ctx, messages...)
}

// Queue defines queue operations
type Queue interface {
	Sender
	// Size is the approximate number of messages waiting
	Size(ctx context.Context) (int, error)
	StartConsumer(ctx context.Context) error
	StopConsumer(ctx context.Context) error
}

// Partition splits a polled batch into terminated, failed and runnable messages,
// keeping delivery order inside each part.
func Partition(messages []*domain.ExecutionMessage) (terminated, failed, runnable []*domain.ExecutionMessage) {
	for _, msg := range messages {
		switch {
		case msg.IsTerminated():
			terminated = append(terminated, msg)
		case msg.IsFailed():
			failed = append(failed, msg)
		default:
			runnable = append(runnable, msg)
		}
	}
	return terminated, failed, runnable
}
