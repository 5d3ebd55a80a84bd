package watermill

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"score/internal/domain"
	eventbus "score/internal/eventbus/iface"
	"score/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type watermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     logger.Logger
}

// NewEventBus publishes lifecycle events as JSON messages on eventbus.Topic
func NewEventBus(pub message.Publisher, sub message.Subscriber, log logger.Logger) eventbus.EventBus {
	return &watermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     log.With(logger.String("component", "event_bus")),
	}
}

// NewGoChannelPubSub is the in-process publisher/subscriber pair
func NewGoChannelPubSub(bufferSize int64, log logger.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		NewLoggerAdapter(log),
	)
}

// Dispatch builds one message per event and hands them to a single Publish call
func (b *watermillEventBus) Dispatch(ctx context.Context, events ...*domain.LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("dispatch interrupted: %w", err)
	}

	msgs := make([]*message.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
		}

		msg := message.NewMessage(watermill.NewULID(), payload)
		msg.Metadata.Set(eventbus.EventTypeMetadataKey, string(ev.Type))
		msg.Metadata.Set(eventbus.ExecutionIDMetadataKey, strconv.FormatInt(ev.ExecutionID, 10))
		msg.SetContext(ctx)
		msgs = append(msgs, msg)
	}

	if err := b.publisher.Publish(eventbus.Topic, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d events: %w", len(msgs), err)
	}

	b.logger.Debug("dispatched lifecycle events", logger.Int("count", len(msgs)))
	return nil
}

// Subscribe delivers decoded events to handler until ctx is done. Messages
// that fail to decode are acked and dropped, handler errors nack.
func (b *watermillEventBus) Subscribe(ctx context.Context, handler eventbus.Handler) error {
	messages, err := b.subscriber.Subscribe(ctx, eventbus.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eventbus.Topic, err)
	}

	go func() {
		for msg := range messages {
			var ev domain.LifecycleEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.logger.Error("failed to decode lifecycle event",
					logger.String("message_uuid", msg.UUID),
					logger.Error(err))
				msg.Ack()
				continue
			}

			if err := handler(msg.Context(), &ev); err != nil {
				b.logger.Warn("lifecycle event handler failed",
					logger.String("event_id", ev.ID),
					logger.String("event_type", string(ev.Type)),
					logger.Error(err))
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

func (b *watermillEventBus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	return nil
}
