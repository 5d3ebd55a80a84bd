package service

import (
	"context"
	"errors"

	"score/internal/codec"
	"score/internal/domain"
	eventbus "score/internal/eventbus/iface"
	"score/internal/logger"
	queue "score/internal/queue/iface"
)

// branchFailedReason marks a failed branch that carried no step error
const branchFailedReason = "branch failed"

type queueListener struct {
	codec       codec.ExecutionCodec
	coordinator SplitJoinCoordinator
	pauses      PauseResumeService
	bus         eventbus.EventBus
	logger      logger.Logger
}

// NewQueueListener builds the reactor behind the queue's lifecycle callbacks.
// No callback returns an error; every per-message problem is logged and
// contained to that message.
func NewQueueListener(
	c codec.ExecutionCodec,
	coordinator SplitJoinCoordinator,
	pauses PauseResumeService,
	bus eventbus.EventBus,
	log logger.Logger,
) queue.Listener {
	return &queueListener{
		codec:       c,
		coordinator: coordinator,
		pauses:      pauses,
		bus:         bus,
		logger:      log.With(logger.String("component", "queue_listener")),
	}
}

func (l *queueListener) OnEnqueue(ctx context.Context, messages []*domain.ExecutionMessage, queueSize int) {
	l.observe("enqueued", messages, queueSize)
}

func (l *queueListener) OnPoll(ctx context.Context, messages []*domain.ExecutionMessage, queueSize int) {
	l.observe("polled", messages, queueSize)
}

func (l *queueListener) observe(what string, messages []*domain.ExecutionMessage, queueSize int) {
	for _, msg := range messages {
		if msg == nil {
			l.logger.Warn("nil message in batch", logger.String("stage", what))
			continue
		}
		l.logger.Debug("message "+what,
			logger.Int64("message_id", msg.MessageID),
			logger.String("unique_id", msg.UniqueID),
			logger.String("status", string(msg.Status)),
			logger.Int("queue_size", queueSize))
	}
}

func (l *queueListener) OnTerminated(ctx context.Context, messages []*domain.ExecutionMessage) {
	var events []*domain.LifecycleEvent
	var branches []*domain.Execution

	for _, msg := range messages {
		execution, ok := l.decode(msg)
		if !ok {
			continue
		}

		if !execution.IsBranch() {
			events = append(events, domain.NewFlowFinishedEvent(execution))
			l.release(ctx, execution)
			continue
		}

		branches = append(branches, execution)
		events = append(events, domain.NewBranchFinishedEvent(execution))
	}

	if len(branches) > 0 {
		if err := l.coordinator.EndBranch(ctx, branches); err != nil {
			l.logger.Error("failed to end branches",
				logger.Int("branches", len(branches)),
				logger.Error(err))
		}
	}

	l.dispatch(ctx, events)
}

func (l *queueListener) OnFailed(ctx context.Context, messages []*domain.ExecutionMessage) {
	var events []*domain.LifecycleEvent

	for _, msg := range messages {
		execution, ok := l.decode(msg)
		if !ok {
			continue
		}

		switch {
		case execution.FailedBecauseNoWorker():
			pauseID, err := l.pauses.PauseForNoWorkers(ctx, execution)
			if err != nil {
				// still announced, without a pause id
				l.logger.Error("failed to pause execution without workers",
					logger.Int64("execution_id", execution.ExecutionID),
					logger.String("branch_id", execution.SystemContext.BranchID),
					logger.Int64("message_id", msg.MessageID),
					logger.String("unique_id", msg.UniqueID),
					logger.String("group", execution.SystemContext.NoWorkerInGroupName),
					logger.Error(err))
			}
			events = append(events, domain.NewNoWorkerEvent(execution, pauseID))

		case execution.IsBranch():
			execution.MarkFailed(branchFailedReason)
			if err := l.coordinator.EndBranch(ctx, []*domain.Execution{execution}); err != nil {
				l.logger.Error("failed to end failed branch",
					logger.Int64("execution_id", execution.ExecutionID),
					logger.String("branch_id", execution.SystemContext.BranchID),
					logger.Error(err))
			}
			l.release(ctx, execution)
			events = append(events, domain.NewBranchFailedEvent(execution))

		default:
			l.release(ctx, execution)
			events = append(events, domain.NewFlowFailedEvent(execution))
		}
	}

	l.dispatch(ctx, events)
}

func (l *queueListener) decode(msg *domain.ExecutionMessage) (*domain.Execution, bool) {
	if msg == nil {
		l.logger.Warn("nil message in batch")
		return nil, false
	}

	execution, err := l.codec.Decode(msg.Payload)
	if err != nil {
		l.logger.Error("skipping undecodable message",
			logger.Int64("message_id", msg.MessageID),
			logger.String("unique_id", msg.UniqueID),
			logger.Error(err))
		return nil, false
	}
	return execution, true
}

func (l *queueListener) release(ctx context.Context, execution *domain.Execution) {
	if err := l.pauses.ReleaseExecution(ctx, execution.ExecutionID, execution.SystemContext.BranchID); err != nil {
		l.logger.Error("failed to release pause record",
			logger.Int64("execution_id", execution.ExecutionID),
			logger.String("branch_id", execution.SystemContext.BranchID),
			logger.Error(err))
	}
}

// dispatch hands every event of the batch to the bus in one call. Failures
// are dropped: the queue message already is the durable record.
func (l *queueListener) dispatch(ctx context.Context, events []*domain.LifecycleEvent) {
	if len(events) == 0 {
		return
	}

	err := l.bus.Dispatch(ctx, events...)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		l.logger.Warn("event dispatch interrupted, dropping events",
			logger.Int("events", len(events)),
			logger.Error(err))
	default:
		l.logger.Error("event dispatch failed, dropping events",
			logger.Int("events", len(events)),
			logger.Error(err))
	}
}
