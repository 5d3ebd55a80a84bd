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
	"score/internal/plan"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"

	"github.com/google/uuid"
)

// SplitJoinCoordinator fans executions out into branches and resumes the
// parent exactly once when every branch reported
type SplitJoinCoordinator interface {
	// Split is keyed by the message that reached the split step, so a
	// redelivered message finds its split instead of fanning out again
	Split(ctx context.Context, parent *domain.Execution, step *plan.CompiledStep, messageID int64) ([]*domain.Execution, error)
	EndBranch(ctx context.Context, branches []*domain.Execution) error
}

type splitJoinCoordinator struct {
	splits   repositoryIface.SplitRepository
	locker   lock.KeyLocker
	codec    codec.ExecutionCodec
	plans    *plan.Store
	enqueuer Enqueuer
	logger   logger.Logger
}

func NewSplitJoinCoordinator(
	splits repositoryIface.SplitRepository,
	locker lock.KeyLocker,
	c codec.ExecutionCodec,
	plans *plan.Store,
	enqueuer Enqueuer,
	log logger.Logger,
) SplitJoinCoordinator {
	return &splitJoinCoordinator{
		splits:   splits,
		locker:   locker,
		codec:    c,
		plans:    plans,
		enqueuer: enqueuer,
		logger:   log.With(logger.String("component", "split_join")),
	}
}

func executionLockKey(executionID int64) string {
	return strconv.FormatInt(executionID, 10)
}

// splitIDFor derives the split id from what triggered it; branch ids derive
// from the split id and the branch index
func splitIDFor(executionID, stepID, messageID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("score/split/%d/%d/%d", executionID, stepID, messageID)))
}

func branchIDFor(splitID uuid.UUID, index int) string {
	return uuid.NewSHA1(splitID, []byte(strconv.Itoa(index))).String()
}

func (c *splitJoinCoordinator) Split(ctx context.Context, parent *domain.Execution, step *plan.CompiledStep, messageID int64) ([]*domain.Execution, error) {
	spec := step.Split
	if spec == nil {
		return nil, fmt.Errorf("%w: step %d is not a split", domain.ErrInvalidPlan, step.StepID)
	}

	var items []any
	arity := spec.Arity
	if spec.ItemsVariable != "" {
		list, ok := parent.Variables[spec.ItemsVariable].([]any)
		if !ok && parent.Variables[spec.ItemsVariable] != nil {
			return nil, fmt.Errorf("split step %d: variable %q is not a list", step.StepID, spec.ItemsVariable)
		}
		items = list
		arity = len(items)
	}

	parentSnapshot, err := c.codec.Encode(parent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parent: %w", err)
	}

	splitUUID := splitIDFor(parent.ExecutionID, step.StepID, messageID)
	splitID := splitUUID.String()
	branches := make([]*domain.Execution, 0, arity)
	expected := make([]string, 0, arity)
	for i := 0; i < arity; i++ {
		branch := parent.Clone()
		branch.Position = domain.StepRef(spec.BranchBeginStepID)
		branch.SystemContext = domain.SystemContext{
			BranchID:    branchIDFor(splitUUID, i),
			SplitID:     splitID,
			BranchIndex: i,
		}
		if spec.ItemVariable != "" && items != nil {
			branch.Variables[spec.ItemVariable] = items[i]
		}
		branches = append(branches, branch)
		expected = append(expected, branch.SystemContext.BranchID)
	}

	unlock, err := c.locker.Lock(ctx, executionLockKey(parent.ExecutionID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock execution %d: %w", parent.ExecutionID, err)
	}
	defer unlock()

	existing, err := c.splits.Get(ctx, parent.ExecutionID, splitID)
	switch {
	case err == nil:
		c.logger.Info("split already created, ignoring redelivered message",
			logger.Int64("execution_id", parent.ExecutionID),
			logger.String("split_id", splitID),
			logger.Int64("message_id", messageID),
			logger.Bool("resumed", existing.Resumed))
		if existing.Complete() && !existing.Resumed {
			// an earlier join failed to enqueue the parent
			return nil, c.join(ctx, existing)
		}
		return nil, nil
	case !repository.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to read split record: %w", err)
	}

	record := domain.NewSplitRecord(parent.ExecutionID, splitID, step.StepID, parent.FlowID,
		expected, spec.JoinPolicy, spec.Publish, parentSnapshot)
	if err := c.splits.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store split record: %w", err)
	}

	c.logger.Info("execution split",
		logger.Int64("execution_id", parent.ExecutionID),
		logger.String("split_id", splitID),
		logger.Int64("step_id", step.StepID),
		logger.Int("branches", arity))

	if arity == 0 {
		// nothing to wait for
		return nil, c.join(ctx, record)
	}

	if err := c.enqueuer.Enqueue(ctx, domain.MessageStatusPending, branches...); err != nil {
		// without the record a redelivery fans out again with the same branch ids
		if delErr := c.splits.Delete(ctx, parent.ExecutionID, splitID); delErr != nil {
			c.logger.Error("failed to drop split record after enqueue failure",
				logger.Int64("execution_id", parent.ExecutionID),
				logger.String("split_id", splitID),
				logger.Error(delErr))
		}
		return nil, fmt.Errorf("failed to enqueue branches: %w", err)
	}
	return branches, nil
}

type splitKey struct {
	executionID int64
	splitID     string
}

// EndBranch records branch completions grouped by split. Duplicates and
// branches of already joined splits are ignored.
func (c *splitJoinCoordinator) EndBranch(ctx context.Context, branches []*domain.Execution) error {
	var order []splitKey
	groups := make(map[splitKey][]*domain.Execution)
	for _, branch := range branches {
		if !branch.IsBranch() || branch.SystemContext.SplitID == "" {
			c.logger.Warn("ignoring branch completion without split",
				logger.Int64("execution_id", branch.ExecutionID),
				logger.String("branch_id", branch.SystemContext.BranchID))
			continue
		}
		key := splitKey{branch.ExecutionID, branch.SystemContext.SplitID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], branch)
	}

	var errs []error
	for _, key := range order {
		if err := c.endSplitBranches(ctx, key, groups[key]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *splitJoinCoordinator) endSplitBranches(ctx context.Context, key splitKey, branches []*domain.Execution) error {
	unlock, err := c.locker.Lock(ctx, executionLockKey(key.executionID))
	if err != nil {
		return fmt.Errorf("failed to lock execution %d: %w", key.executionID, err)
	}
	defer unlock()

	record, err := c.splits.Get(ctx, key.executionID, key.splitID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			c.logger.Warn("split record not found",
				logger.Int64("execution_id", key.executionID),
				logger.String("split_id", key.splitID))
			return nil
		}
		return fmt.Errorf("failed to read split record: %w", err)
	}
	if record.Resumed {
		c.logger.Debug("split already joined, ignoring late branches",
			logger.Int64("execution_id", key.executionID),
			logger.String("split_id", key.splitID))
		return nil
	}

	recorded := 0
	for _, branch := range branches {
		result := &domain.BranchResult{
			BranchID:  branch.SystemContext.BranchID,
			Index:     branch.SystemContext.BranchIndex,
			Failed:    branch.Failed(),
			Error:     branch.SystemContext.StepErrorKey,
			Variables: branch.Variables,
		}
		if record.Record(result) {
			recorded++
			continue
		}
		c.logger.Debug("branch completion ignored",
			logger.Int64("execution_id", key.executionID),
			logger.String("branch_id", result.BranchID))
	}

	if !record.Complete() {
		if recorded == 0 {
			return nil
		}
		if err := c.splits.Put(ctx, record); err != nil {
			return fmt.Errorf("failed to store split record: %w", err)
		}
		return nil
	}

	// complete but not resumed: either the last branch just arrived or an
	// earlier join failed to enqueue the parent
	return c.join(ctx, record)
}

// join must run under the execution lock. The record is marked resumed
// before the parent is enqueued and reverted if the enqueue fails.
func (c *splitJoinCoordinator) join(ctx context.Context, record *domain.SplitRecord) error {
	parent, status, err := c.buildParent(record)
	if err != nil {
		return err
	}

	record.Resumed = true
	if err := c.splits.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to store split record: %w", err)
	}

	if err := c.enqueuer.Enqueue(ctx, status, parent); err != nil {
		record.Resumed = false
		if putErr := c.splits.Put(ctx, record); putErr != nil {
			c.logger.Error("failed to revert split record",
				logger.Int64("execution_id", record.ExecutionID),
				logger.String("split_id", record.SplitID),
				logger.Error(putErr))
		}
		return fmt.Errorf("failed to enqueue joined parent: %w", err)
	}

	c.logger.Info("split joined, parent resumed",
		logger.Int64("execution_id", record.ExecutionID),
		logger.String("split_id", record.SplitID),
		logger.String("outcome", parent.SystemContext.Outcome),
		logger.String("status", string(status)))
	return nil
}

// buildParent merges branch outputs per the publish rules and navigates the
// parent from the split step
func (c *splitJoinCoordinator) buildParent(record *domain.SplitRecord) (*domain.Execution, domain.MessageStatus, error) {
	parent, err := c.codec.Decode(record.Parent)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode parent of split %s: %w", record.SplitID, err)
	}

	results := record.Ordered()
	for parentVar, branchVar := range record.Publish {
		values := make([]any, 0, len(results))
		for _, res := range results {
			values = append(values, res.Variables[branchVar])
		}
		parent.Variables[parentVar] = values
	}

	outcome := domain.OutcomeSuccess
	if record.JoinPolicy != domain.JoinPolicyIgnoreFailures && record.AnyFailed() {
		outcome = domain.OutcomeFailure
	}
	parent.SystemContext.Outcome = outcome

	compiled, err := c.plans.Get(record.FlowID)
	if err != nil {
		parent.MarkFailed(err.Error())
		return parent, domain.MessageStatusFailure, nil
	}
	next, err := compiled.Next(record.SplitStepID, outcome)
	if err != nil {
		c.logger.Error("cannot navigate joined parent",
			logger.Int64("execution_id", record.ExecutionID),
			logger.Int64("step_id", record.SplitStepID),
			logger.Error(err))
		parent.MarkFailed(err.Error())
		return parent, domain.MessageStatusFailure, nil
	}

	parent.Position = next
	if next == nil {
		return parent, domain.MessageStatusTerminated, nil
	}
	return parent, domain.MessageStatusPending, nil
}
