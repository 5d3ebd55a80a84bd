package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"score/internal/domain"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

type splitKey struct {
	executionID int64
	splitID     string
}

// SplitRepository keeps split records in memory. Records are stored as
// JSON so callers never share mutable state with the store.
type SplitRepository struct {
	mu      sync.RWMutex
	records map[splitKey][]byte
}

var _ repositoryIface.SplitRepository = (*SplitRepository)(nil)

func NewSplitRepository() *SplitRepository {
	return &SplitRepository{
		records: make(map[splitKey][]byte),
	}
}

func (r *SplitRepository) Get(_ context.Context, executionID int64, splitID string) (*domain.SplitRecord, error) {
	r.mu.RLock()
	data, ok := r.records[splitKey{executionID, splitID}]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return decodeSplit(data)
}

func (r *SplitRepository) Put(_ context.Context, record *domain.SplitRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal split record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[splitKey{record.ExecutionID, record.SplitID}] = data
	return nil
}

func (r *SplitRepository) Delete(_ context.Context, executionID int64, splitID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, splitKey{executionID, splitID})
	return nil
}

func (r *SplitRepository) ListOpen(_ context.Context) ([]*domain.SplitRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []*domain.SplitRecord
	for _, data := range r.records {
		rec, err := decodeSplit(data)
		if err != nil {
			return nil, err
		}
		if !rec.Resumed {
			open = append(open, rec)
		}
	}
	return open, nil
}

func decodeSplit(data []byte) (*domain.SplitRecord, error) {
	var rec domain.SplitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal split record: %w", err)
	}
	if rec.Finished == nil {
		rec.Finished = make(map[string]*domain.BranchResult)
	}
	return &rec, nil
}
