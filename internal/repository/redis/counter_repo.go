package redis

import (
	"context"
	"fmt"

	cache "score/internal/cache/iface"
	repositoryIface "score/internal/repository/iface"
)

const counterKeyPrefix = "score:counter:"

type counterRepository struct {
	cache cache.Cache
}

// NewCounterRepository backs named sequences with Redis INCR
func NewCounterRepository(c cache.Cache) repositoryIface.CounterRepository {
	return &counterRepository{cache: c}
}

func (r *counterRepository) Increment(ctx context.Context, name string) (int64, error) {
	val, err := r.cache.Incr(ctx, counterKeyPrefix+name)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return val, nil
}
