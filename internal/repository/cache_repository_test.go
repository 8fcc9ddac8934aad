package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffreylongo/lodge-api/internal/models"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

func newTestCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewCacheRepository(client, nil)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, _ := newTestCache(t)
	ctx := context.Background()

	date := time.Date(2025, 3, 11, 19, 30, 0, 0, time.UTC)
	end := date.Add(90 * time.Minute)
	stored := models.CachedCollection{
		Events: []models.Event{{
			ID:        42,
			Title:     "Stated Communication",
			Date:      date,
			StartTime: "7:30 PM",
			EndDate:   &end,
			Category:  models.CategoryMeeting,
		}},
		LastSync:  date,
		ExpiresAt: date.Add(12 * time.Hour),
	}

	require.NoError(t, repo.Set(ctx, "lodge:calendar:merged", stored, 12*time.Hour))

	var loaded models.CachedCollection
	require.NoError(t, repo.Get(ctx, "lodge:calendar:merged", &loaded))

	require.Len(t, loaded.Events, 1)
	assert.Equal(t, stored.Events[0].ID, loaded.Events[0].ID)
	assert.True(t, stored.Events[0].Date.Equal(loaded.Events[0].Date))
	require.NotNil(t, loaded.Events[0].EndDate)
	assert.True(t, end.Equal(*loaded.Events[0].EndDate))
	assert.True(t, stored.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestCacheRepositoryMissingKeyIsMiss(t *testing.T) {
	repo, _ := newTestCache(t)

	var dest models.CachedCollection
	err := repo.Get(context.Background(), "absent", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryCorruptPayloadIsMiss(t *testing.T) {
	repo, mr := newTestCache(t)
	require.NoError(t, mr.Set("lodge:calendar:merged", "{not json"))

	var dest models.CachedCollection
	err := repo.Get(context.Background(), "lodge:calendar:merged", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryTTLExpiry(t *testing.T) {
	repo, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "key", map[string]string{"a": "b"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var dest map[string]string
	err := repo.Get(ctx, "key", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDelete(t *testing.T) {
	repo, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "key", "value", 0))
	require.NoError(t, repo.Delete(ctx, "key"))

	var dest string
	err := repo.Get(ctx, "key", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest string
	assert.ErrorIs(t, repo.Get(ctx, "key", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "key", "value", 0))
	assert.NoError(t, repo.Delete(ctx, "key"))
}
