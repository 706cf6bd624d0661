package github

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/pkg/config"
)

// TreeCache stores tree entries of resolved branches.
type TreeCache interface {
	// Get returns the cached entries and whether they were present.
	Get(ctx context.Context, key string) ([]TreeEntry, bool, error)
	Set(ctx context.Context, key string, entries []TreeEntry) error
	Close() error
}

// CacheKey builds the cache key for a repository branch.
func CacheKey(owner, repo, branch string) string {
	return owner + "/" + repo + "@" + branch
}

// NewTreeCache creates the cache selected by cfg. A redis cache that cannot
// be reached at startup degrades to the in-memory cache.
func NewTreeCache(cfg config.CacheConfig, logger *zap.Logger) TreeCache {
	ttl := cfg.TTLDuration()
	switch cfg.Type {
	case "none":
		return NopCache{}
	case "redis":
		rc, err := NewRedisCache(cfg.Redis, ttl, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, falling back to memory cache",
				zap.String("address", cfg.Redis.Address), zap.Error(err))
			return NewMemoryCache(ttl)
		}
		logger.Info("Using Redis tree cache", zap.String("address", cfg.Redis.Address))
		return rc
	default:
		return NewMemoryCache(ttl)
	}
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]TreeEntry, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, string, []TreeEntry) error       { return nil }
func (NopCache) Close() error                                         { return nil }

type memoryEntry struct {
	entries   []TreeEntry
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache. A non-positive ttl disables
// expiry-based storage entirely.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]TreeEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.entries, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, entries []TreeEntry) error {
	if m.ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{entries: entries, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryCache) Close() error { return nil }

// Len returns the number of stored keys, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// RedisCache shares cached trees between gateway instances.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "auditfix:tree:"
	}

	return &RedisCache{
		client:    client,
		keyPrefix: prefix,
		ttl:       ttl,
		logger:    logger.Named("redis_cache"),
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]TreeEntry, bool, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []TreeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return entries, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, entries []TreeEntry) error {
	if r.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.keyPrefix+key, data, r.ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
