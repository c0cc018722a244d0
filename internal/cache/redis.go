package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mantonx/streamhub/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache shared by every instance of the service
type RedisCache struct {
	name   string
	client *redis.Client
	prefix string
}

// NewRedisCache namespaces keys as <prefix><name>:<key>
func NewRedisCache(name string, client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{name: name, client: client, prefix: prefix}
}

func (r *RedisCache) key(key string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, r.name, key)
}

// Get implements Cache
func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(r.name, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	metrics.RecordCacheLookup(r.name, true)
	return true, json.Unmarshal(data, dest)
}

// Set implements Cache
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete implements Cache
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
