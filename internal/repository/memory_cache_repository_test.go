package repository

import (
	"context"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

type cachedCatalog struct {
	Version int64    `json:"version"`
	Slots   []string `json:"slots"`
}

func TestMemoryCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute))
	ctx := context.Background()

	var out cachedCatalog
	require.ErrorIs(t, repo.Get(ctx, "timegrid:catalog:v1", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "timegrid:catalog:v1", cachedCatalog{Version: 1, Slots: []string{"Sunday 08:00-08:50"}}, 0))
	require.NoError(t, repo.Get(ctx, "timegrid:catalog:v1", &out))
	assert.Equal(t, int64(1), out.Version)
	assert.Equal(t, []string{"Sunday 08:00-08:50"}, out.Slots)
}

func TestMemoryCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository(gocache.New(time.Minute, time.Minute))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "timegrid:catalog:v1", 1, time.Minute))
	require.NoError(t, repo.Set(ctx, "timegrid:catalog:v2:Monday", 2, time.Minute))
	require.NoError(t, repo.Set(ctx, "close-run:run-1", 3, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "timegrid:catalog:*"))

	var v int
	assert.ErrorIs(t, repo.Get(ctx, "timegrid:catalog:v1", &v), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "timegrid:catalog:v2:Monday", &v), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "close-run:run-1", &v))
	assert.Equal(t, 3, v)
}
