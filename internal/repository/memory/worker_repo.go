package memory

import (
	"context"
	"sort"
	"sync"

	"score/internal/domain"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

// WorkerRepository keeps worker descriptors in memory
type WorkerRepository struct {
	mu      sync.RWMutex
	workers map[string]domain.Worker
}

var _ repositoryIface.WorkerRepository = (*WorkerRepository)(nil)

func NewWorkerRepository() *WorkerRepository {
	return &WorkerRepository{workers: make(map[string]domain.Worker)}
}

func copyWorker(w domain.Worker) *domain.Worker {
	w.Groups = append([]string(nil), w.Groups...)
	return &w
}

func (r *WorkerRepository) Put(_ context.Context, worker *domain.Worker) error {
	r.mu.Lock()
	r.workers[worker.UUID] = *copyWorker(*worker)
	r.mu.Unlock()
	return nil
}

func (r *WorkerRepository) Get(_ context.Context, uuid string) (*domain.Worker, error) {
	r.mu.RLock()
	w, ok := r.workers[uuid]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyWorker(w), nil
}

func (r *WorkerRepository) ActiveInGroup(_ context.Context, group string) ([]*domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Worker
	for _, w := range r.workers {
		if w.Eligible() && w.InGroup(group) {
			out = append(out, copyWorker(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}
