package service

import (
	"context"
	"fmt"
	"strconv"

	"score/internal/codec"
	"score/internal/domain"
	queue "score/internal/queue/iface"
	repositoryIface "score/internal/repository/iface"
)

// Enqueuer turns execution contexts into queue messages
type Enqueuer interface {
	Enqueue(ctx context.Context, status domain.MessageStatus, executions ...*domain.Execution) error
}

type enqueuer struct {
	sender   queue.Sender
	codec    codec.ExecutionCodec
	counters repositoryIface.CounterRepository
}

func NewEnqueuer(sender queue.Sender, c codec.ExecutionCodec, counters repositoryIface.CounterRepository) Enqueuer {
	return &enqueuer{sender: sender, codec: c, counters: counters}
}

// UniqueID correlates every message of one execution (or branch)
func UniqueID(execution *domain.Execution) string {
	id := strconv.FormatInt(execution.ExecutionID, 10)
	if execution.IsBranch() {
		return id + ":" + execution.SystemContext.BranchID
	}
	return id
}

func (e *enqueuer) Enqueue(ctx context.Context, status domain.MessageStatus, executions ...*domain.Execution) error {
	if len(executions) == 0 {
		return nil
	}

	msgs := make([]*domain.ExecutionMessage, 0, len(executions))
	for _, execution := range executions {
		payload, err := e.codec.Encode(execution)
		if err != nil {
			return fmt.Errorf("failed to encode execution %d: %w", execution.ExecutionID, err)
		}
		messageID, err := e.counters.Increment(ctx, repositoryIface.CounterMessageID)
		if err != nil {
			return fmt.Errorf("failed to allocate message id: %w", err)
		}
		msgs = append(msgs, domain.NewExecutionMessage(messageID, UniqueID(execution), status, payload))
	}

	if err := e.sender.Send(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to enqueue %d messages: %w", len(msgs), err)
	}
	return nil
}
