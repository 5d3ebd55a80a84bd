package watermill

import (
	"context"
	"errors"
	"testing"
	"time"

	"score/internal/domain"
	"score/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDeliversEveryEvent(t *testing.T) {
	log := logger.NewNopLogger()
	pubSub := NewGoChannelPubSub(16, log)
	bus := NewEventBus(pubSub, pubSub, log)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *domain.LifecycleEvent, 4)
	require.NoError(t, bus.Subscribe(ctx, func(_ context.Context, ev *domain.LifecycleEvent) error {
		received <- ev
		return nil
	}))

	exec := domain.NewExecution(42, "flow", 1, map[string]any{"k": "v"})
	branch := exec.Clone()
	branch.SystemContext.BranchID = "b-1"
	pauseID := int64(9)

	require.NoError(t, bus.Dispatch(context.Background(),
		domain.NewFlowFinishedEvent(exec),
		domain.NewBranchFinishedEvent(branch),
		domain.NewNoWorkerEvent(exec, &pauseID),
	))

	var got []*domain.LifecycleEvent
	for len(got) < 3 {
		select {
		case ev := <-received:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of 3 events", len(got))
		}
	}

	types := []domain.EventType{got[0].Type, got[1].Type, got[2].Type}
	assert.ElementsMatch(t, []domain.EventType{
		domain.EventFlowFinished, domain.EventBranchFinished, domain.EventNoWorkerAvailable,
	}, types)
	for _, ev := range got {
		assert.Equal(t, int64(42), ev.ExecutionID)
		if ev.Type == domain.EventNoWorkerAvailable {
			require.NotNil(t, ev.PauseID)
			assert.Equal(t, int64(9), *ev.PauseID)
		}
	}
}

func TestDispatchHonoursInterruption(t *testing.T) {
	log := logger.NewNopLogger()
	pubSub := NewGoChannelPubSub(1, log)
	bus := NewEventBus(pubSub, pubSub, log)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Dispatch(ctx, domain.NewFlowFinishedEvent(domain.NewExecution(1, "f", 1, nil)))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDispatchNothingIsNoop(t *testing.T) {
	log := logger.NewNopLogger()
	pubSub := NewGoChannelPubSub(1, log)
	bus := NewEventBus(pubSub, pubSub, log)
	defer bus.Close()

	assert.NoError(t, bus.Dispatch(context.Background()))
}
