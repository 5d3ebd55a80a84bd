package service

import (
	"context"
	"sync"
	"testing"

	"score/internal/codec"
	"score/internal/domain"
	eventbus "score/internal/eventbus/iface"
	"score/internal/lock/local"
	"score/internal/logger"
	"score/internal/plan"
	"score/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu    sync.Mutex
	calls [][]*domain.LifecycleEvent
	err   error
}

func (b *recordingBus) Dispatch(_ context.Context, events ...*domain.LifecycleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, append([]*domain.LifecycleEvent(nil), events...))
	return b.err
}

func (b *recordingBus) Subscribe(context.Context, eventbus.Handler) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) events() []*domain.LifecycleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*domain.LifecycleEvent
	for _, call := range b.calls {
		out = append(out, call...)
	}
	return out
}

func (b *recordingBus) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type recordingSender struct {
	mu       sync.Mutex
	messages []*domain.ExecutionMessage
	err      error
}

func (s *recordingSender) Send(_ context.Context, messages ...*domain.ExecutionMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, messages...)
	return nil
}

func (s *recordingSender) take() []*domain.ExecutionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.messages
	s.messages = nil
	return out
}

// spyCoordinator records EndBranch calls without joining
type spyCoordinator struct {
	mu    sync.Mutex
	calls [][]*domain.Execution
}

func (c *spyCoordinator) Split(context.Context, *domain.Execution, *plan.CompiledStep, int64) ([]*domain.Execution, error) {
	return nil, nil
}

func (c *spyCoordinator) EndBranch(_ context.Context, branches []*domain.Execution) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, branches)
	return nil
}

type harness struct {
	codec     codec.ExecutionCodec
	store     *plan.Store
	pauseRepo *memory.PauseRepository
	splitRepo *memory.SplitRepository
	counters  *memory.CounterRepository
	workers   *memory.WorkerRepository
	sender    *recordingSender
	bus       *recordingBus

	enqueuer    Enqueuer
	pauses      PauseResumeService
	coordinator SplitJoinCoordinator
	listener    *queueListener
	runner      StepRunner
}

func newHarness(t *testing.T, plans ...*domain.ExecutionPlan) *harness {
	t.Helper()
	log := logger.NewNopLogger()

	h := &harness{
		codec:     codec.NewJSONCodec(),
		store:     plan.NewStore(),
		pauseRepo: memory.NewPauseRepository(),
		splitRepo: memory.NewSplitRepository(),
		counters:  memory.NewCounterRepository(),
		workers:   memory.NewWorkerRepository(),
		sender:    &recordingSender{},
		bus:       &recordingBus{},
	}

	registry := plan.NewDefaultRegistry()
	for _, p := range plans {
		compiled, err := plan.Compile(p, registry)
		require.NoError(t, err)
		h.store.Put(compiled)
	}

	locker := local.NewKeyLocker()
	h.enqueuer = NewEnqueuer(h.sender, h.codec, h.counters)
	h.pauses = NewPauseResumeService(h.pauseRepo, h.counters, h.codec, h.enqueuer, locker, log)
	h.coordinator = NewSplitJoinCoordinator(h.splitRepo, locker, h.codec, h.store, h.enqueuer, log)
	h.listener = NewQueueListener(h.codec, h.coordinator, h.pauses, h.bus, log).(*queueListener)
	h.runner = NewStepRunner(h.codec, h.store, h.workers, h.counters, h.pauses, h.coordinator, h.enqueuer, log)
	return h
}

// withCoordinator swaps the listener's coordinator
func (h *harness) withCoordinator(c SplitJoinCoordinator) *harness {
	h.listener.coordinator = c
	return h
}

func (h *harness) message(t *testing.T, status domain.MessageStatus, execution *domain.Execution) *domain.ExecutionMessage {
	t.Helper()
	payload, err := h.codec.Encode(execution)
	require.NoError(t, err)
	return domain.NewExecutionMessage(1, UniqueID(execution), status, payload)
}

// sent decodes and drains everything enqueued so far
func (h *harness) sent(t *testing.T) ([]*domain.ExecutionMessage, []*domain.Execution) {
	t.Helper()
	msgs := h.sender.take()
	execs := make([]*domain.Execution, 0, len(msgs))
	for _, msg := range msgs {
		execution, err := h.codec.Decode(msg.Payload)
		require.NoError(t, err)
		execs = append(execs, execution)
	}
	return msgs, execs
}

func branchOf(parent *domain.Execution, splitID, branchID string, index int) *domain.Execution {
	b := parent.Clone()
	b.SystemContext = domain.SystemContext{BranchID: branchID, SplitID: splitID, BranchIndex: index}
	b.Position = nil
	return b
}

// fanoutPlan: split(0) x arity -> task(1) -> end(2); branches run step 10.
// FAILURE joins go to step 3.
func fanoutPlan(flowID string, arity int, policy domain.JoinPolicy) *domain.ExecutionPlan {
	return domain.NewExecutionPlan(flowID, 0).
		AddStep(&domain.ExecutionStep{
			StepID: 0,
			Split: &domain.SplitSpec{
				BranchBeginStepID: 10,
				Arity:             arity,
				JoinPolicy:        policy,
				Publish:           map[string]string{"results": "result"},
			},
			Outcomes: map[string]*int64{
				domain.OutcomeSuccess: domain.StepRef(1),
				domain.OutcomeFailure: domain.StepRef(3),
			},
		}).
		AddStep(&domain.ExecutionStep{
			StepID:           1,
			Action:           plan.ActionAssign,
			ActionData:       domain.StepData{"values": map[string]any{"joined": true}},
			NavigationAction: plan.NavigationNext,
			Outcomes:         map[string]*int64{domain.OutcomeNext: domain.StepRef(2)},
		}).
		AddStep(&domain.ExecutionStep{
			StepID:           2,
			Action:           plan.ActionNoop,
			NavigationAction: plan.NavigationNext,
			Outcomes:         map[string]*int64{domain.OutcomeNext: nil},
		}).
		AddStep(&domain.ExecutionStep{
			StepID:           3,
			Action:           plan.ActionNoop,
			NavigationAction: plan.NavigationNext,
			Outcomes:         map[string]*int64{domain.OutcomeNext: nil},
		}).
		AddStep(&domain.ExecutionStep{
			StepID:           10,
			Action:           plan.ActionAssign,
			ActionData:       domain.StepData{"values": map[string]any{"result": "ok"}},
			NavigationAction: plan.NavigationNext,
			Outcomes:         map[string]*int64{domain.OutcomeNext: nil},
		})
}
