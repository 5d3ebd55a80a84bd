package service

import (
	"context"
	"fmt"

	"score/internal/codec"
	"score/internal/domain"
	"score/internal/logger"
	"score/internal/plan"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

// StepRunner advances executions by one step per queue message
type StepRunner interface {
	ProcessMessage(ctx context.Context, msg *domain.ExecutionMessage) bool
	// Start launches a new main-line execution of flowID and returns its id
	Start(ctx context.Context, flowID string, variables map[string]any) (int64, error)
}

type stepRunner struct {
	codec       codec.ExecutionCodec
	plans       *plan.Store
	workers     repositoryIface.WorkerRepository
	counters    repositoryIface.CounterRepository
	pauses      PauseResumeService
	coordinator SplitJoinCoordinator
	enqueuer    Enqueuer
	logger      logger.Logger
}

func NewStepRunner(
	c codec.ExecutionCodec,
	plans *plan.Store,
	workers repositoryIface.WorkerRepository,
	counters repositoryIface.CounterRepository,
	pauses PauseResumeService,
	coordinator SplitJoinCoordinator,
	enqueuer Enqueuer,
	log logger.Logger,
) StepRunner {
	return &stepRunner{
		codec:       c,
		plans:       plans,
		workers:     workers,
		counters:    counters,
		pauses:      pauses,
		coordinator: coordinator,
		enqueuer:    enqueuer,
		logger:      log.With(logger.String("component", "step_runner")),
	}
}

func (r *stepRunner) Start(ctx context.Context, flowID string, variables map[string]any) (int64, error) {
	compiled, err := r.plans.Get(flowID)
	if err != nil {
		return 0, err
	}

	executionID, err := r.counters.Increment(ctx, repositoryIface.CounterExecution)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate execution id: %w", err)
	}

	execution := domain.NewExecution(executionID, flowID, compiled.BeginStepID(), variables)
	if err := r.enqueuer.Enqueue(ctx, domain.MessageStatusPending, execution); err != nil {
		return 0, err
	}

	r.logger.Info("execution started",
		logger.Int64("execution_id", executionID),
		logger.String("flow_id", flowID))
	return executionID, nil
}

// ProcessMessage returns false only for transient problems worth a redelivery
func (r *stepRunner) ProcessMessage(ctx context.Context, msg *domain.ExecutionMessage) bool {
	execution, err := r.codec.Decode(msg.Payload)
	if err != nil {
		r.logger.Error("dropping undecodable message",
			logger.Int64("message_id", msg.MessageID),
			logger.String("unique_id", msg.UniqueID),
			logger.Error(err))
		return true
	}

	log := r.logger.With(
		logger.Int64("execution_id", execution.ExecutionID),
		logger.String("branch_id", execution.SystemContext.BranchID),
		logger.Int64("message_id", msg.MessageID),
	)

	if execution.IsTerminal() {
		return r.send(ctx, log, domain.MessageStatusTerminated, execution)
	}

	parked, err := r.park(ctx, execution)
	if err != nil {
		log.Error("failed to check pause state", logger.Error(err))
		return false
	}
	if parked {
		log.Info("execution parked")
		return true
	}

	return r.step(ctx, log, execution, msg.MessageID)
}

// park stores the context of an execution that was paused while in flight
func (r *stepRunner) park(ctx context.Context, execution *domain.Execution) (bool, error) {
	branchID := execution.SystemContext.BranchID
	if _, err := r.pauses.ReadPausedExecution(ctx, execution.ExecutionID, branchID); err != nil {
		if repository.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	if err := r.pauses.WriteExecutionObject(ctx, execution.ExecutionID, branchID, execution); err != nil {
		if repository.IsNotFoundError(err) {
			// resumed in the meantime
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *stepRunner) step(ctx context.Context, log logger.Logger, execution *domain.Execution, messageID int64) bool {
	compiled, err := r.plans.Get(execution.FlowID)
	if err != nil {
		return r.fail(ctx, log, execution, err)
	}
	step, err := compiled.Step(*execution.Position)
	if err != nil {
		return r.fail(ctx, log, execution, err)
	}

	if step.WorkerGroup != "" {
		workers, err := r.workers.ActiveInGroup(ctx, step.WorkerGroup)
		if err != nil {
			log.Error("failed to look up workers", logger.String("group", step.WorkerGroup), logger.Error(err))
			return false
		}
		if len(workers) == 0 {
			log.Warn("no worker available", logger.String("group", step.WorkerGroup))
			execution.SystemContext.NoWorkerInGroupName = step.WorkerGroup
			return r.send(ctx, log, domain.MessageStatusFailure, execution)
		}
	}

	if step.IsSplit() {
		if _, err := r.coordinator.Split(ctx, execution, step, messageID); err != nil {
			return r.fail(ctx, log, execution, err)
		}
		return true
	}

	execution.SystemContext.Outcome = ""
	if err := step.Action.Execute(ctx, execution, step.ActionData); err != nil {
		return r.fail(ctx, log, execution, err)
	}

	outcome, err := step.Navigate(execution)
	if err != nil {
		return r.fail(ctx, log, execution, err)
	}
	next, err := compiled.Next(step.StepID, outcome)
	if err != nil {
		return r.fail(ctx, log, execution, err)
	}

	log.Debug("step completed",
		logger.Int64("step_id", step.StepID),
		logger.String("outcome", outcome))

	execution.Position = next
	if next == nil {
		return r.send(ctx, log, domain.MessageStatusTerminated, execution)
	}
	return r.send(ctx, log, domain.MessageStatusPending, execution)
}

func (r *stepRunner) fail(ctx context.Context, log logger.Logger, execution *domain.Execution, err error) bool {
	if domain.IsConfigurationError(err) {
		log.Error("configuration error, aborting navigation", logger.Error(err))
	} else {
		log.Warn("step failed", logger.Error(err))
	}
	execution.MarkFailed(err.Error())
	return r.send(ctx, log, domain.MessageStatusFailure, execution)
}

func (r *stepRunner) send(ctx context.Context, log logger.Logger, status domain.MessageStatus, execution *domain.Execution) bool {
	if err := r.enqueuer.Enqueue(ctx, status, execution); err != nil {
		log.Error("failed to enqueue follow-up message",
			logger.String("status", string(status)),
			logger.Error(err))
		return false
	}
	return true
}
