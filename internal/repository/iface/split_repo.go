package repository

import (
	"context"

	"score/internal/domain"
)

// SplitRepository stores split records keyed by (executionID, splitID).
// Callers serialize writers per execution; the store itself is plain get/put/delete.
type SplitRepository interface {
	Get(ctx context.Context, executionID int64, splitID string) (*domain.SplitRecord, error)
	Put(ctx context.Context, record *domain.SplitRecord) error
	Delete(ctx context.Context, executionID int64, splitID string) error
	// ListOpen returns records whose parent has not been resumed yet
	ListOpen(ctx context.Context) ([]*domain.SplitRecord, error)
}
