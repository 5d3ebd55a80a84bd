package service

import (
	"context"
	"errors"
	"testing"

	"score/internal/domain"
	"score/internal/lock/local"
	"score/internal/logger"
	"score/internal/repository"
	"score/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventTypes(events []*domain.LifecycleEvent) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestOnTerminatedMainLine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paused := domain.NewExecution(1, "flow", 0, nil)
	running := domain.NewExecution(2, "flow", 0, nil)
	_, err := h.pauses.PauseExecution(ctx, 1, domain.EmptyBranch, domain.PauseReasonUserPaused)
	require.NoError(t, err)

	h.listener.OnTerminated(ctx, []*domain.ExecutionMessage{
		h.message(t, domain.MessageStatusTerminated, paused),
		h.message(t, domain.MessageStatusTerminated, running),
	})

	require.Equal(t, 1, h.bus.callCount(), "one dispatch per batch")
	events := h.bus.events()
	assert.Equal(t, []domain.EventType{domain.EventFlowFinished, domain.EventFlowFinished}, eventTypes(events))
	assert.Equal(t, int64(1), events[0].ExecutionID)
	assert.Equal(t, int64(2), events[1].ExecutionID)

	_, err = h.pauseRepo.Get(ctx, 1, domain.EmptyBranch)
	assert.True(t, repository.IsNotFoundError(err))
}

func TestOnTerminatedSkipsMalformedMessages(t *testing.T) {
	h := newHarness(t)

	bad := domain.NewExecutionMessage(7, "7", domain.MessageStatusTerminated, []byte("{not json"))
	h.listener.OnTerminated(context.Background(), []*domain.ExecutionMessage{
		h.message(t, domain.MessageStatusTerminated, domain.NewExecution(1, "flow", 0, nil)),
		bad,
		nil,
		h.message(t, domain.MessageStatusTerminated, domain.NewExecution(3, "flow", 0, nil)),
	})

	events := h.bus.events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].ExecutionID)
	assert.Equal(t, int64(3), events[1].ExecutionID)
}

func TestOnTerminatedEndsBranchesOncePerBatch(t *testing.T) {
	spy := &spyCoordinator{}
	h := newHarness(t).withCoordinator(spy)

	parent := domain.NewExecution(5, "flow", 0, nil)
	h.listener.OnTerminated(context.Background(), []*domain.ExecutionMessage{
		h.message(t, domain.MessageStatusTerminated, branchOf(parent, "s", "b1", 0)),
		h.message(t, domain.MessageStatusTerminated, domain.NewExecution(6, "flow", 0, nil)),
		h.message(t, domain.MessageStatusTerminated, branchOf(parent, "s", "b2", 1)),
		h.message(t, domain.MessageStatusTerminated, branchOf(parent, "s", "b3", 2)),
	})

	require.Len(t, spy.calls, 1)
	require.Len(t, spy.calls[0], 3)
	assert.Equal(t, "b1", spy.calls[0][0].SystemContext.BranchID)
	assert.Equal(t, "b3", spy.calls[0][2].SystemContext.BranchID)

	assert.Equal(t, 1, h.bus.callCount())
	assert.Equal(t, []domain.EventType{
		domain.EventBranchFinished, domain.EventFlowFinished, domain.EventBranchFinished, domain.EventBranchFinished,
	}, eventTypes(h.bus.events()))
}

func TestOnTerminatedWithoutBranchesSkipsEndBranch(t *testing.T) {
	spy := &spyCoordinator{}
	h := newHarness(t).withCoordinator(spy)

	h.listener.OnTerminated(context.Background(), []*domain.ExecutionMessage{
		h.message(t, domain.MessageStatusTerminated, domain.NewExecution(1, "flow", 0, nil)),
	})
	assert.Empty(t, spy.calls)
}

func TestOnFailedClassifies(t *testing.T) {
	spy := &spyCoordinator{}
	h := newHarness(t).withCoordinator(spy)
	ctx := context.Background()

	noWorker := domain.NewExecution(1, "flow", 0, nil)
	noWorker.SystemContext.NoWorkerInGroupName = "gpu"

	branch := branchOf(domain.NewExecution(2, "flow", 0, nil), "s", "b1", 0)
	_, err := h.pauses.PauseExecution(ctx, 2, "b1", domain.PauseReasonUserPaused)
	require.NoError(t, err)

	flow := domain.NewExecution(3, "flow", 0, nil)
	flow.MarkFailed("boom")

	h.listener.OnFailed(ctx, []*domain.ExecutionMessage{
		h.message(t, domain.MessageStatusFailure, noWorker),
		h.message(t, domain.MessageStatusFailure, branch),
		h.message(t, domain.MessageStatusFailure, flow),
	})

	require.Equal(t, 1, h.bus.callCount())
	events := h.bus.events()
	assert.Equal(t, []domain.EventType{
		domain.EventNoWorkerAvailable, domain.EventBranchFailed, domain.EventFlowFailed,
	}, eventTypes(events))
	require.NotNil(t, events[0].PauseID)
	assert.Equal(t, "gpu", events[0].GroupName)
	assert.Equal(t, "boom", events[2].Error)

	// no-capacity creates a record, the branch failure releases its own
	record, err := h.pauseRepo.Get(ctx, 1, domain.EmptyBranch)
	require.NoError(t, err)
	assert.Equal(t, domain.PauseReasonNoWorkersInGroup, record.Reason)
	assert.True(t, record.HasSnapshot())
	_, err = h.pauseRepo.Get(ctx, 2, "b1")
	assert.True(t, repository.IsNotFoundError(err))

	require.Len(t, spy.calls, 1)
	require.Len(t, spy.calls[0], 1)
	assert.True(t, spy.calls[0][0].Failed())
}

func TestNoWorkerPauseIDOnlyOnFirstFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	execution := domain.NewExecution(9, "flow", 4, map[string]any{"attempt": "first"})
	execution.SystemContext.NoWorkerInGroupName = "gpu"
	h.listener.OnFailed(ctx, []*domain.ExecutionMessage{h.message(t, domain.MessageStatusFailure, execution)})

	execution.Variables["attempt"] = "second"
	h.listener.OnFailed(ctx, []*domain.ExecutionMessage{h.message(t, domain.MessageStatusFailure, execution)})

	events := h.bus.events()
	require.Len(t, events, 2)
	require.NotNil(t, events[0].PauseID)
	assert.Nil(t, events[1].PauseID)
	assert.Equal(t, 1, h.pauseRepo.Len())

	record, err := h.pauseRepo.Get(ctx, 9, domain.EmptyBranch)
	require.NoError(t, err)
	assert.Equal(t, *events[0].PauseID, record.PauseID)
	snapshot, err := h.codec.Decode(record.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, "second", snapshot.Variables["attempt"])
}

func TestNoWorkerAfterUserPauseTakesResnapshotPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pauseID, err := h.pauses.PauseExecution(ctx, 4, domain.EmptyBranch, domain.PauseReasonUserPaused)
	require.NoError(t, err)
	require.NotNil(t, pauseID)

	execution := domain.NewExecution(4, "flow", 2, nil)
	execution.SystemContext.NoWorkerInGroupName = "gpu"
	h.listener.OnFailed(ctx, []*domain.ExecutionMessage{h.message(t, domain.MessageStatusFailure, execution)})

	events := h.bus.events()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].PauseID)

	record, err := h.pauseRepo.Get(ctx, 4, domain.EmptyBranch)
	require.NoError(t, err)
	assert.Equal(t, domain.PauseReasonUserPaused, record.Reason)
	assert.Equal(t, *pauseID, record.PauseID)
	assert.True(t, record.HasSnapshot())
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	for _, busErr := range []error{context.Canceled, errors.New("broker down")} {
		h := newHarness(t)
		h.bus.err = busErr
		ctx := context.Background()

		_, err := h.pauses.PauseExecution(ctx, 1, domain.EmptyBranch, domain.PauseReasonUserPaused)
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			h.listener.OnTerminated(ctx, []*domain.ExecutionMessage{
				h.message(t, domain.MessageStatusTerminated, domain.NewExecution(1, "flow", 0, nil)),
			})
		})
		assert.Equal(t, 0, h.pauseRepo.Len())
	}
}

func TestObservationalCallbacksTolerateNil(t *testing.T) {
	h := newHarness(t)
	msgs := []*domain.ExecutionMessage{nil, h.message(t, domain.MessageStatusPending, domain.NewExecution(1, "f", 0, nil))}

	assert.NotPanics(t, func() {
		h.listener.OnEnqueue(context.Background(), msgs, 3)
		h.listener.OnPoll(context.Background(), msgs, -1)
	})
	assert.Equal(t, 0, h.bus.callCount())
}

type unreadablePauseRepo struct {
	*memory.PauseRepository
}

func (unreadablePauseRepo) Get(context.Context, int64, string) (*domain.PausedExecution, error) {
	return nil, assert.AnError
}

func TestNoWorkerEventSurvivesPauseFailure(t *testing.T) {
	h := newHarness(t)
	log := logger.NewNopLogger()
	pauses := NewPauseResumeService(unreadablePauseRepo{h.pauseRepo}, h.counters, h.codec, h.enqueuer, local.NewKeyLocker(), log)
	listener := NewQueueListener(h.codec, h.coordinator, pauses, h.bus, log)

	execution := domain.NewExecution(14, "flow", 2, nil)
	execution.SystemContext.NoWorkerInGroupName = "gpu"
	listener.OnFailed(context.Background(), []*domain.ExecutionMessage{h.message(t, domain.MessageStatusFailure, execution)})

	events := h.bus.events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNoWorkerAvailable, events[0].Type)
	assert.Nil(t, events[0].PauseID)
	assert.Equal(t, "gpu", events[0].GroupName)
	assert.Equal(t, 0, h.pauseRepo.Len())
}
