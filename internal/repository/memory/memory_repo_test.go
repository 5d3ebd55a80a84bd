package memory

import (
	"context"
	"sync"
	"testing"

	"score/internal/domain"
	"score/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseRepositoryCreateIsExclusive(t *testing.T) {
	ctx := context.Background()
	repo := NewPauseRepository()

	require.NoError(t, repo.Create(ctx, domain.NewPausedExecution(1, 10, "", domain.PauseReasonUserPaused)))
	err := repo.Create(ctx, domain.NewPausedExecution(2, 10, "", domain.PauseReasonNoWorkersInGroup))
	assert.True(t, repository.IsAlreadyPausedError(err))

	// same execution, other branch is a distinct key
	require.NoError(t, repo.Create(ctx, domain.NewPausedExecution(3, 10, "b1", domain.PauseReasonNoWorkersInGroup)))
	assert.Equal(t, 2, repo.Len())

	got, err := repo.Get(ctx, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PauseID)
	assert.Equal(t, domain.PauseReasonUserPaused, got.Reason)
}

func TestPauseRepositorySnapshotAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewPauseRepository()

	err := repo.UpdateSnapshot(ctx, 5, "", []byte("x"))
	assert.True(t, repository.IsNotFoundError(err))

	require.NoError(t, repo.Create(ctx, domain.NewPausedExecution(1, 5, "", domain.PauseReasonNoWorkersInGroup)))
	require.NoError(t, repo.UpdateSnapshot(ctx, 5, "", []byte("snap")))

	got, err := repo.Get(ctx, 5, "")
	require.NoError(t, err)
	assert.Equal(t, []byte("snap"), got.Snapshot)

	require.NoError(t, repo.Delete(ctx, 5, ""))
	require.NoError(t, repo.Delete(ctx, 5, ""), "delete must be idempotent")

	_, err = repo.Get(ctx, 5, "")
	assert.True(t, repository.IsNotFoundError(err))
}

func TestPauseRepositoryConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewPauseRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.Create(ctx, domain.NewPausedExecution(int64(i), 77, "", domain.PauseReasonNoWorkersInGroup)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, repo.Len())
}

func TestSplitRepositoryDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	repo := NewSplitRepository()

	rec := domain.NewSplitRecord(1, "s1", 4, "flow", []string{"a", "b"}, domain.JoinPolicyFailOnAny, nil, nil)
	require.NoError(t, repo.Put(ctx, rec))

	rec.Record(&domain.BranchResult{BranchID: "a"})

	stored, err := repo.Get(ctx, 1, "s1")
	require.NoError(t, err)
	assert.Empty(t, stored.Finished)

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	stored.Resumed = true
	require.NoError(t, repo.Put(ctx, stored))
	open, err = repo.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, repo.Delete(ctx, 1, "s1"))
	_, err = repo.Get(ctx, 1, "s1")
	assert.True(t, repository.IsNotFoundError(err))
}

func TestCounterRepositoryIsMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepository()

	first, err := repo.Increment(ctx, "a")
	require.NoError(t, err)
	second, err := repo.Increment(ctx, "a")
	require.NoError(t, err)
	other, err := repo.Increment(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, int64(1), other)
}

func TestWorkerRepositoryActiveInGroup(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkerRepository()

	workers := []*domain.Worker{
		{UUID: "w2", Active: true, Status: domain.WorkerStatusUp, Groups: []string{"gpu"}},
		{UUID: "w1", Active: true, Status: domain.WorkerStatusUp, Groups: []string{"gpu", "cpu"}},
		{UUID: "w3", Active: false, Status: domain.WorkerStatusUp, Groups: []string{"gpu"}},
		{UUID: "w4", Active: true, Deleted: true, Status: domain.WorkerStatusUp, Groups: []string{"gpu"}},
		{UUID: "w5", Active: true, Status: domain.WorkerStatusInRecovery, Groups: []string{"gpu"}},
	}
	for _, w := range workers {
		require.NoError(t, repo.Put(ctx, w))
	}

	gpu, err := repo.ActiveInGroup(ctx, "gpu")
	require.NoError(t, err)
	require.Len(t, gpu, 2)
	assert.Equal(t, "w1", gpu[0].UUID)
	assert.Equal(t, "w2", gpu[1].UUID)

	none, err := repo.ActiveInGroup(ctx, "arm")
	require.NoError(t, err)
	assert.Empty(t, none)

	got, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	got.Groups[0] = "mutated"
	again, err := repo.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "gpu", again.Groups[0])

	_, err = repo.Get(ctx, "missing")
	assert.True(t, repository.IsNotFoundError(err))
}
