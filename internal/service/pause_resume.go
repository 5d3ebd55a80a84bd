package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"score/internal/codec"
	"score/internal/domain"
	lock "score/internal/lock/iface"
	"score/internal/logger"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

// PauseResumeService parks executions keyed by (executionID, branchID) and
// brings them back
type PauseResumeService interface {
	// ReadPausedExecution returns repository.ErrNotFound when the execution runs
	ReadPausedExecution(ctx context.Context, executionID int64, branchID string) (*domain.PausedExecution, error)
	// PauseExecution returns a new pause id, or nil when a record already exists
	PauseExecution(ctx context.Context, executionID int64, branchID string, reason domain.PauseReason) (*int64, error)
	// WriteExecutionObject stores the context snapshot of a paused execution
	WriteExecutionObject(ctx context.Context, executionID int64, branchID string, execution *domain.Execution) error
	// PauseForNoWorkers pauses or re-snapshots a no-capacity failure. The id is nil on re-snapshot.
	PauseForNoWorkers(ctx context.Context, execution *domain.Execution) (*int64, error)
	// ResumeExecution deletes the record and re-enqueues the snapshot. It reports
	// whether anything was enqueued.
	ResumeExecution(ctx context.Context, executionID int64, branchID string) (bool, error)
	// ReleaseExecution drops the record if any
	ReleaseExecution(ctx context.Context, executionID int64, branchID string) error
}

type pauseResumeService struct {
	pauses   repositoryIface.PauseRepository
	counters repositoryIface.CounterRepository
	codec    codec.ExecutionCodec
	enqueuer Enqueuer
	locker   lock.KeyLocker
	logger   logger.Logger
}

func NewPauseResumeService(
	pauses repositoryIface.PauseRepository,
	counters repositoryIface.CounterRepository,
	c codec.ExecutionCodec,
	enqueuer Enqueuer,
	locker lock.KeyLocker,
	log logger.Logger,
) PauseResumeService {
	return &pauseResumeService{
		pauses:   pauses,
		counters: counters,
		codec:    c,
		enqueuer: enqueuer,
		locker:   locker,
		logger:   log.With(logger.String("component", "pause_resume")),
	}
}

func pauseLockKey(executionID int64, branchID string) string {
	return "pause-" + strconv.FormatInt(executionID, 10) + "-" + branchID
}

func (s *pauseResumeService) ReadPausedExecution(ctx context.Context, executionID int64, branchID string) (*domain.PausedExecution, error) {
	return s.pauses.Get(ctx, executionID, branchID)
}

func (s *pauseResumeService) PauseExecution(ctx context.Context, executionID int64, branchID string, reason domain.PauseReason) (*int64, error) {
	return s.pause(ctx, executionID, branchID, reason, nil)
}

// pause looks up before creating, under the same key lock as resume. Create
// itself is conditional, so a racing creator that slips in between still ends
// on the re-snapshot path, and a record released in between is created again.
func (s *pauseResumeService) pause(ctx context.Context, executionID int64, branchID string, reason domain.PauseReason, snapshot []byte) (*int64, error) {
	unlock, err := s.locker.Lock(ctx, pauseLockKey(executionID, branchID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock pause record: %w", err)
	}
	defer unlock()

	existing, err := s.pauses.Get(ctx, executionID, branchID)
	switch {
	case err == nil:
		err = s.resnapshot(ctx, executionID, branchID, snapshot)
		if !repository.IsNotFoundError(err) {
			s.logger.Debug("execution already paused",
				logger.Int64("execution_id", executionID),
				logger.String("branch_id", branchID),
				logger.Int64("pause_id", existing.PauseID))
			return nil, err
		}
		s.logger.Debug("pause record released before re-snapshot, creating a new one",
			logger.Int64("execution_id", executionID),
			logger.String("branch_id", branchID))
	case !repository.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to read pause record: %w", err)
	}

	pauseID, err := s.counters.Increment(ctx, repositoryIface.CounterPauseID)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pause id: %w", err)
	}

	record := domain.NewPausedExecution(pauseID, executionID, branchID, reason)
	record.Snapshot = snapshot
	if err := s.pauses.Create(ctx, record); err != nil {
		if repository.IsAlreadyPausedError(err) {
			return nil, s.resnapshot(ctx, executionID, branchID, snapshot)
		}
		return nil, fmt.Errorf("failed to create pause record: %w", err)
	}

	s.logger.Info("execution paused",
		logger.Int64("execution_id", executionID),
		logger.String("branch_id", branchID),
		logger.Int64("pause_id", pauseID),
		logger.String("reason", string(reason)))
	return &pauseID, nil
}

func (s *pauseResumeService) resnapshot(ctx context.Context, executionID int64, branchID string, snapshot []byte) error {
	if snapshot == nil {
		return nil
	}
	if err := s.pauses.UpdateSnapshot(ctx, executionID, branchID, snapshot); err != nil {
		return fmt.Errorf("failed to overwrite snapshot: %w", err)
	}
	return nil
}

func (s *pauseResumeService) WriteExecutionObject(ctx context.Context, executionID int64, branchID string, execution *domain.Execution) error {
	snapshot, err := s.codec.Encode(execution)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.pauses.UpdateSnapshot(ctx, executionID, branchID, snapshot)
}

func (s *pauseResumeService) PauseForNoWorkers(ctx context.Context, execution *domain.Execution) (*int64, error) {
	snapshot, err := s.codec.Encode(execution)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.pause(ctx, execution.ExecutionID, execution.SystemContext.BranchID, domain.PauseReasonNoWorkersInGroup, snapshot)
}

func (s *pauseResumeService) ResumeExecution(ctx context.Context, executionID int64, branchID string) (bool, error) {
	unlock, err := s.locker.Lock(ctx, pauseLockKey(executionID, branchID))
	if err != nil {
		return false, fmt.Errorf("failed to lock pause record: %w", err)
	}
	defer unlock()

	record, err := s.pauses.Get(ctx, executionID, branchID)
	if err != nil {
		return false, err
	}

	if !record.HasSnapshot() {
		if record.Reason == domain.PauseReasonNoWorkersInGroup {
			return false, fmt.Errorf("%w: execution %d branch %q", ErrSnapshotMissing, executionID, branchID)
		}
		// the execution was never parked; dropping the record lets it continue
		if err := s.pauses.Delete(ctx, executionID, branchID); err != nil {
			return false, fmt.Errorf("failed to delete pause record: %w", err)
		}
		return false, nil
	}

	execution, err := s.codec.Decode(record.Snapshot)
	if err != nil {
		return false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	execution.SystemContext.NoWorkerInGroupName = ""

	// the record goes first, otherwise the step runner would park the resumed message again
	if err := s.pauses.Delete(ctx, executionID, branchID); err != nil {
		return false, fmt.Errorf("failed to delete pause record: %w", err)
	}

	if err := s.enqueuer.Enqueue(ctx, domain.MessageStatusPending, execution); err != nil {
		if restoreErr := s.pauses.Create(ctx, record); restoreErr != nil {
			s.logger.Error("failed to restore pause record after enqueue failure",
				logger.Int64("execution_id", executionID),
				logger.String("branch_id", branchID),
				logger.Error(restoreErr))
		}
		return false, fmt.Errorf("failed to re-enqueue execution: %w", err)
	}

	s.logger.Info("execution resumed",
		logger.Int64("execution_id", executionID),
		logger.String("branch_id", branchID),
		logger.Int64("pause_id", record.PauseID))
	return true, nil
}

func (s *pauseResumeService) ReleaseExecution(ctx context.Context, executionID int64, branchID string) error {
	if err := s.pauses.Delete(ctx, executionID, branchID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to release pause record: %w", err)
	}
	return nil
}
