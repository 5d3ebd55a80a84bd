package eventbus

import (
	"context"

	"score/internal/domain"
)

// Topic carries every lifecycle event
const Topic = "score.lifecycle"

// Metadata keys set on published messages
const (
	EventTypeMetadataKey   = "event_type"
	ExecutionIDMetadataKey = "execution_id"
)

// Handler consumes one lifecycle event
type Handler func(ctx context.Context, event *domain.LifecycleEvent) error

// EventBus publishes lifecycle events. Dispatch sends the whole slice in one
// call; an error may be a context interruption.
type EventBus interface {
	Dispatch(ctx context.Context, events ...*domain.LifecycleEvent) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
