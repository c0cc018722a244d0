// Package cache provides the optional read caches and the shared redis
// connection. Cached values are JSON encoded; the database stays the
// source of truth.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encodable values with a TTL
type Cache interface {
	// Get decodes the value at key into dest. found is false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Connect opens the configured redis connection and verifies it with a
// ping. It returns nil without error when redis is not configured.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection successful", "addr", cfg.Addr)
	return client, nil
}

// New returns a redis-backed cache when client is set, else an in-memory one
func New(name string, client *redis.Client, prefix string) Cache {
	if client != nil {
		return NewRedisCache(name, client, prefix)
	}
	return NewMemoryCache(name)
}

var (
	sharedClient *redis.Client
	sharedMu     sync.RWMutex
)

// SetClient stores the process-wide redis client; nil means no redis
func SetClient(client *redis.Client) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedClient = client
}

// Client returns the process-wide redis client, or nil
func Client() *redis.Client {
	sharedMu.RLock()
	defer sharedMu.RUnlock()
	return sharedClient
}
