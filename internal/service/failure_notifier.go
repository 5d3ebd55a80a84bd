package service

import (
	"context"
	"fmt"

	"score/internal/domain"
	eventbus "score/internal/eventbus/iface"
	"score/internal/logger"
	"score/internal/slack"
)

// FailureNotifier forwards failure and capacity events to a Slack channel
type FailureNotifier interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Handle(ctx context.Context, event *domain.LifecycleEvent) error
}

type failureNotifier struct {
	bus     eventbus.EventBus
	client  slack.Client
	channel string
	logger  logger.Logger
	cancel  context.CancelFunc
}

func NewFailureNotifier(bus eventbus.EventBus, client slack.Client, channel string, log logger.Logger) FailureNotifier {
	return &failureNotifier{
		bus:     bus,
		client:  client,
		channel: channel,
		logger:  log.With(logger.String("component", "failure_notifier")),
	}
}

func (n *failureNotifier) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(context.Background())
	if err := n.bus.Subscribe(subCtx, n.Handle); err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe failure notifier: %w", err)
	}
	n.cancel = cancel
	n.logger.Info("failure notifier started", logger.String("channel", n.channel))
	return nil
}

func (n *failureNotifier) Stop(ctx context.Context) error {
	if n.cancel != nil {
		n.cancel()
	}
	return nil
}

// Handle ignores events that need no attention
func (n *failureNotifier) Handle(ctx context.Context, event *domain.LifecycleEvent) error {
	message, ok := formatAlert(event)
	if !ok {
		return nil
	}

	if err := n.client.SendMessage(ctx, n.channel, message); err != nil {
		n.logger.Error("failed to send slack message",
			logger.String("channel", n.channel),
			logger.String("event_id", event.ID),
			logger.Error(err))
		return fmt.Errorf("failed to notify %s: %w", event.Type, err)
	}

	n.logger.Debug("slack message sent",
		logger.String("event_type", string(event.Type)),
		logger.Int64("execution_id", event.ExecutionID))
	return nil
}

func formatAlert(event *domain.LifecycleEvent) (string, bool) {
	switch event.Type {
	case domain.EventFlowFailed:
		return fmt.Sprintf("Flow %s execution %d failed: %s", event.FlowID, event.ExecutionID, event.Error), true
	case domain.EventNoWorkerAvailable:
		msg := fmt.Sprintf("Flow %s execution %d is waiting for workers in group %s", event.FlowID, event.ExecutionID, event.GroupName)
		if event.BranchID != "" {
			msg += fmt.Sprintf(" (branch %s)", event.BranchID)
		}
		if event.PauseID != nil {
			msg += fmt.Sprintf(", pause id %d", *event.PauseID)
		}
		return msg, true
	default:
		return "", false
	}
}
