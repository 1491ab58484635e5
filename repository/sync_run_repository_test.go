package repository

import (
	"context"
	"testing"
	"time"

	"catalog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRunRepository_CreateAndRecent(t *testing.T) {
	_, db, cleanup := setupTestRepo(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	start := time.Now().UTC().Add(-time.Minute)
	first := &models.SyncRun{
		Operation:  models.OpPopular,
		Fetched:    20,
		Inserted:   19,
		Skipped:    1,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}
	require.NoError(t, repo.Create(ctx, first, map[string]interface{}{"kind": "movie", "page": 1}))
	assert.NotZero(t, first.ID)
	assert.JSONEq(t, `{"kind":"movie","page":1}`, first.Params)

	second := &models.SyncRun{
		Operation:  models.OpSearch,
		Error:      "rate limited",
		StartedAt:  start.Add(30 * time.Second),
		FinishedAt: start.Add(31 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, second, nil))

	runs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, models.OpSearch, runs[0].Operation)
	assert.False(t, runs[0].Succeeded())
	assert.Empty(t, runs[0].Params)

	assert.Equal(t, models.OpPopular, runs[1].Operation)
	assert.True(t, runs[1].Succeeded())
	assert.Equal(t, 19, runs[1].Inserted)
	assert.Equal(t, 1, runs[1].Skipped)
}

func TestSyncRunRepository_RecentLimit(t *testing.T) {
	_, db, cleanup := setupTestRepo(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		run := &models.SyncRun{Operation: models.OpTrending, StartedAt: now, FinishedAt: now}
		require.NoError(t, repo.Create(ctx, run, nil))
	}

	runs, err := repo.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSyncRunRepository_DeleteOlderThan(t *testing.T) {
	_, db, cleanup := setupTestRepo(t)
	defer cleanup()
	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	old := &models.SyncRun{Operation: models.OpGenre, StartedAt: now.Add(-48 * time.Hour), FinishedAt: now.Add(-48 * time.Hour)}
	fresh := &models.SyncRun{Operation: models.OpGenre, StartedAt: now, FinishedAt: now}
	require.NoError(t, repo.Create(ctx, old, nil))
	require.NoError(t, repo.Create(ctx, fresh, nil))

	deleted, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, fresh.ID, runs[0].ID)
}
