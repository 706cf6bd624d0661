package github

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/pkg/config"
)

func TestMemoryCache_SetGet(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	entries := []TreeEntry{blob("a.go", 1)}
	require.NoError(t, cache.Set(ctx, CacheKey("o", "r", "main"), entries))

	got, ok, err := cache.Get(ctx, "o/r@main")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entries, got)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []TreeEntry{blob("a.go", 1)}))

	now = now.Add(30 * time.Second)
	_, ok, _ := cache.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_SetSweepsExpired(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "old", nil))
	now = now.Add(2 * time.Minute)
	require.NoError(t, cache.Set(ctx, "new", nil))

	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_ZeroTTLStoresNothing(t *testing.T) {
	cache := NewMemoryCache(0)
	require.NoError(t, cache.Set(context.Background(), "k", []TreeEntry{blob("a.go", 1)}))
	assert.Equal(t, 0, cache.Len())
}

func TestNewTreeCache(t *testing.T) {
	logger := zap.NewNop()

	cfg := config.Default().Cache
	assert.IsType(t, &MemoryCache{}, NewTreeCache(cfg, logger))

	cfg.Type = "none"
	assert.IsType(t, NopCache{}, NewTreeCache(cfg, logger))
}

func TestNewTreeCache_RedisUnavailableFallsBackToMemory(t *testing.T) {
	cfg := config.Default().Cache
	cfg.Type = "redis"
	cfg.Redis.Address = "127.0.0.1:1"

	cache := NewTreeCache(cfg, zap.NewNop())
	assert.IsType(t, &MemoryCache{}, cache)
}
