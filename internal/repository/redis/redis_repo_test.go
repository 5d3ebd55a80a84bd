package redis

import (
	"context"
	"testing"
	"time"

	cache "score/internal/cache/iface"
	rediscache "score/internal/cache/redis"
	"score/internal/domain"
	"score/internal/logger"
	"score/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redisAddr = "localhost:6379"

func setupCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := rediscache.NewRedisCache(redisAddr, "", 0, logger.NewNopLogger())
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", redisAddr, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSplitRepository(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	repo := NewSplitRepository(c, time.Minute, logger.NewNopLogger())

	splitID := uuid.New().String()
	defer repo.Delete(ctx, 7, splitID)

	_, err := repo.Get(ctx, 7, splitID)
	assert.True(t, repository.IsNotFoundError(err))

	rec := domain.NewSplitRecord(7, splitID, 3, "fan", []string{"a", "b"}, domain.JoinPolicyFailOnAny,
		map[string]string{"out": "res"}, []byte(`{"execution_id":7}`))
	require.NoError(t, repo.Put(ctx, rec))

	got, err := repo.Get(ctx, 7, splitID)
	require.NoError(t, err)
	assert.Equal(t, rec.Expected, got.Expected)
	assert.Equal(t, rec.Parent, got.Parent)
	assert.NotNil(t, got.Finished)

	t.Run("open until resumed", func(t *testing.T) {
		open, err := repo.ListOpen(ctx)
		require.NoError(t, err)
		assert.True(t, containsSplit(open, splitID))

		got.Record(&domain.BranchResult{BranchID: "a"})
		got.Record(&domain.BranchResult{BranchID: "b", Index: 1})
		got.Resumed = true
		require.NoError(t, repo.Put(ctx, got))

		open, err = repo.ListOpen(ctx)
		require.NoError(t, err)
		assert.False(t, containsSplit(open, splitID))

		kept, err := repo.Get(ctx, 7, splitID)
		require.NoError(t, err, "resumed records are retained")
		assert.True(t, kept.Resumed)
		assert.Len(t, kept.Finished, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 7, splitID))
		_, err := repo.Get(ctx, 7, splitID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCounterRepository(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	repo := NewCounterRepository(c)

	name := "test-" + uuid.New().String()
	defer c.Delete(ctx, "score:counter:"+name)

	first, err := repo.Increment(ctx, name)
	require.NoError(t, err)
	second, err := repo.Increment(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestParseSplitMember(t *testing.T) {
	id, split, ok := parseSplitMember("42:abc:def")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "abc:def", split)

	_, _, ok = parseSplitMember(":x")
	assert.False(t, ok)
	_, _, ok = parseSplitMember("nan:x")
	assert.False(t, ok)
}

func containsSplit(records []*domain.SplitRecord, splitID string) bool {
	for _, r := range records {
		if r.SplitID == splitID {
			return true
		}
	}
	return false
}
