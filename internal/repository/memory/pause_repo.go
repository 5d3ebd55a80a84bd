package memory

import (
	"context"
	"sync"
	"time"

	"score/internal/domain"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

type pauseKey struct {
	executionID int64
	branchID    string
}

// PauseRepository is a goroutine-safe in-memory pause store
type PauseRepository struct {
	mu      sync.RWMutex
	records map[pauseKey]*domain.PausedExecution
}

var _ repositoryIface.PauseRepository = (*PauseRepository)(nil)

func NewPauseRepository() *PauseRepository {
	return &PauseRepository{
		records: make(map[pauseKey]*domain.PausedExecution),
	}
}

func (r *PauseRepository) Get(_ context.Context, executionID int64, branchID string) (*domain.PausedExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.records[pauseKey{executionID, branchID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PauseRepository) Create(_ context.Context, paused *domain.PausedExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pauseKey{paused.ExecutionID, paused.BranchID}
	if _, exists := r.records[key]; exists {
		return repository.ErrAlreadyPaused
	}
	cp := *paused
	r.records[key] = &cp
	return nil
}

func (r *PauseRepository) UpdateSnapshot(_ context.Context, executionID int64, branchID string, snapshot []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.records[pauseKey{executionID, branchID}]
	if !ok {
		return repository.ErrNotFound
	}
	p.Snapshot = append([]byte(nil), snapshot...)
	p.UpdatedAt = time.Now().UnixMilli()
	return nil
}

func (r *PauseRepository) Delete(_ context.Context, executionID int64, branchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, pauseKey{executionID, branchID})
	return nil
}

// Len is used by tests to assert no duplicate records were created
func (r *PauseRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
