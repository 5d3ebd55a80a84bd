package repository

import (
	"context"

	"score/internal/domain"
)

// PauseRepository stores pause records keyed by (executionID, branchID)
type PauseRepository interface {
	// Get returns ErrNotFound when the execution is running
	Get(ctx context.Context, executionID int64, branchID string) (*domain.PausedExecution, error)
	// Create fails with ErrAlreadyPaused when a record exists
	Create(ctx context.Context, paused *domain.PausedExecution) error
	// UpdateSnapshot overwrites the stored context; ErrNotFound when not paused
	UpdateSnapshot(ctx context.Context, executionID int64, branchID string, snapshot []byte) error
	// Delete is idempotent
	Delete(ctx context.Context, executionID int64, branchID string) error
}
