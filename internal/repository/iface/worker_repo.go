package repository

import (
	"context"

	"score/internal/domain"
)

// WorkerRepository is the worker directory. The coordination core only reads it.
type WorkerRepository interface {
	Put(ctx context.Context, worker *domain.Worker) error
	Get(ctx context.Context, uuid string) (*domain.Worker, error)
	// ActiveInGroup returns eligible workers serving group, ordered by uuid
	ActiveInGroup(ctx context.Context, group string) ([]*domain.Worker, error)
}
