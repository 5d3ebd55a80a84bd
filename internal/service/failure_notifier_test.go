package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"score/internal/domain"
	"score/internal/eventbus/watermill"
	"score/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSlack struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (s *recordingSlack) SendMessage(_ context.Context, channel, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, channel+": "+message)
	return nil
}

func (s *recordingSlack) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

func TestFailureNotifierFormatsAlerts(t *testing.T) {
	client := &recordingSlack{}
	n := NewFailureNotifier(&recordingBus{}, client, "#ops", logger.NewNopLogger())
	ctx := context.Background()

	failed := domain.NewExecution(5, "billing", 0, nil)
	failed.MarkFailed("card declined")
	require.NoError(t, n.Handle(ctx, domain.NewFlowFailedEvent(failed)))

	waiting := domain.NewExecution(6, "billing", 0, nil)
	waiting.SystemContext.BranchID = "b-1"
	waiting.SystemContext.NoWorkerInGroupName = "gpu"
	require.NoError(t, n.Handle(ctx, domain.NewNoWorkerEvent(waiting, domain.StepRef(3))))

	require.NoError(t, n.Handle(ctx, domain.NewFlowFinishedEvent(failed)))

	assert.Equal(t, []string{
		"#ops: Flow billing execution 5 failed: card declined",
		"#ops: Flow billing execution 6 is waiting for workers in group gpu (branch b-1), pause id 3",
	}, client.sent())

	client.err = assert.AnError
	assert.ErrorIs(t, n.Handle(ctx, domain.NewFlowFailedEvent(failed)), assert.AnError)
}

func TestFailureNotifierSubscribesToBus(t *testing.T) {
	log := logger.NewNopLogger()
	pubSub := watermill.NewGoChannelPubSub(16, log)
	bus := watermill.NewEventBus(pubSub, pubSub, log)
	t.Cleanup(func() { _ = bus.Close() })

	client := &recordingSlack{}
	n := NewFailureNotifier(bus, client, "#ops", log)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(func() { _ = n.Stop(context.Background()) })

	failed := domain.NewExecution(9, "billing", 0, nil)
	failed.MarkFailed("boom")
	require.NoError(t, bus.Dispatch(context.Background(), domain.NewFlowFailedEvent(failed)))

	assert.Eventually(t, func() bool { return len(client.sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
}
