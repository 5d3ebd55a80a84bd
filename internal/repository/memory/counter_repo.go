package memory

import (
	"context"
	"sync"

	repositoryIface "score/internal/repository/iface"
)

// CounterRepository is a process-local named sequence
type CounterRepository struct {
	mu       sync.Mutex
	counters map[string]int64
}

var _ repositoryIface.CounterRepository = (*CounterRepository)(nil)

func NewCounterRepository() *CounterRepository {
	return &CounterRepository{counters: make(map[string]int64)}
}

func (r *CounterRepository) Increment(_ context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name]++
	return r.counters[name], nil
}
