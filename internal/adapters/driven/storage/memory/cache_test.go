package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

func TestSummaryCache_GetPut(t *testing.T) {
	cache, err := NewSummaryCache(4, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, cache.Put(ctx, "k", "text"))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "text", got)
}

func TestSummaryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewSummaryCache(2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "a", "1"))
	require.NoError(t, cache.Put(ctx, "b", "2"))
	_, err = cache.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, "c", "3"))

	_, err = cache.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	_, err = cache.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}

func TestSummaryCache_TTL(t *testing.T) {
	cache, err := NewSummaryCache(4, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Put(ctx, "old", "1"))
	now = now.Add(30 * time.Minute)
	require.NoError(t, cache.Put(ctx, "new", "2"))

	now = now.Add(45 * time.Minute)
	_, err = cache.Get(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	_, err = cache.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestSummaryCache_Prune(t *testing.T) {
	cache, err := NewSummaryCache(4, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Put(ctx, "a", "1"))
	require.NoError(t, cache.Put(ctx, "b", "2"))
	now = now.Add(2 * time.Hour)
	require.NoError(t, cache.Put(ctx, "c", "3"))

	removed, err := cache.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, cache.Len())
}

func TestNewSummaryCache_InvalidSize(t *testing.T) {
	_, err := NewSummaryCache(0, 0)
	assert.Error(t, err)
}
