package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	cache "score/internal/cache/iface"
	"score/internal/domain"
	"score/internal/logger"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

const (
	splitKeyPrefix = "score:split:"
	openSplitsKey  = "score:splits:open"
)

type splitRepository struct {
	cache     cache.Cache
	retention time.Duration
	logger    logger.Logger
}

// NewSplitRepository stores split records as JSON strings. Resumed records
// are kept for retention so re-delivered branch completions still find them.
func NewSplitRepository(c cache.Cache, retention time.Duration, log logger.Logger) repositoryIface.SplitRepository {
	return &splitRepository{
		cache:     c,
		retention: retention,
		logger:    log.With(logger.String("component", "split_repository")),
	}
}

func splitMember(executionID int64, splitID string) string {
	return strconv.FormatInt(executionID, 10) + ":" + splitID
}

func splitKey(executionID int64, splitID string) string {
	return splitKeyPrefix + splitMember(executionID, splitID)
}

func (r *splitRepository) Get(ctx context.Context, executionID int64, splitID string) (*domain.SplitRecord, error) {
	raw, err := r.cache.Get(ctx, splitKey(executionID, splitID))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get split record: %w", err)
	}

	var rec domain.SplitRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal split record: %w", err)
	}
	if rec.Finished == nil {
		rec.Finished = make(map[string]*domain.BranchResult)
	}
	return &rec, nil
}

func (r *splitRepository) Put(ctx context.Context, record *domain.SplitRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal split record: %w", err)
	}

	var ttl time.Duration
	if record.Resumed {
		ttl = r.retention
	}

	if err := r.cache.Set(ctx, splitKey(record.ExecutionID, record.SplitID), string(data), ttl); err != nil {
		return fmt.Errorf("failed to put split record: %w", err)
	}

	member := splitMember(record.ExecutionID, record.SplitID)
	if record.Resumed {
		err = r.cache.SRem(ctx, openSplitsKey, member)
	} else {
		err = r.cache.SAdd(ctx, openSplitsKey, member)
	}
	if err != nil {
		// the index only feeds the reconciliation report
		r.logger.Warn("failed to update open split index",
			logger.String("member", member),
			logger.Error(err))
	}

	return nil
}

func (r *splitRepository) Delete(ctx context.Context, executionID int64, splitID string) error {
	if err := r.cache.Delete(ctx, splitKey(executionID, splitID)); err != nil {
		return fmt.Errorf("failed to delete split record: %w", err)
	}
	if err := r.cache.SRem(ctx, openSplitsKey, splitMember(executionID, splitID)); err != nil {
		r.logger.Warn("failed to update open split index", logger.Error(err))
	}
	return nil
}

func (r *splitRepository) ListOpen(ctx context.Context) ([]*domain.SplitRecord, error) {
	members, err := r.cache.SMembers(ctx, openSplitsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list open splits: %w", err)
	}

	records := make([]*domain.SplitRecord, 0, len(members))
	for _, member := range members {
		executionID, splitID, ok := parseSplitMember(member)
		if !ok {
			r.logger.Warn("malformed open split entry", logger.String("member", member))
			continue
		}
		rec, err := r.Get(ctx, executionID, splitID)
		if err != nil {
			if repository.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		if !rec.Resumed {
			records = append(records, rec)
		}
	}
	return records, nil
}

func parseSplitMember(member string) (int64, string, bool) {
	idx := strings.IndexByte(member, ':')
	if idx <= 0 {
		return 0, "", false
	}
	executionID, err := strconv.ParseInt(member[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return executionID, member[idx+1:], true
}
