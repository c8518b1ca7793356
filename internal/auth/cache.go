package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache stores resolved sessions by ID to spare the database on hot
// paths. Implementations must be safe for concurrent use.
type SessionCache interface {
	Get(ctx context.Context, id string) (*Session, bool, error)
	Set(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, ids ...string) error
	Flush(ctx context.Context) error
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Session, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, *Session, time.Duration) error  { return nil }
func (NopCache) Delete(context.Context, ...string) error             { return nil }
func (NopCache) Flush(context.Context) error                         { return nil }

// DefaultCachePrefix namespaces session keys in Redis.
const DefaultCachePrefix = "auth:session:"

// RedisCache is a SessionCache backed by Redis. Entries are JSON-encoded
// sessions stored under prefix+id.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis server at url (redis://...) and
// verifies the connection with PING.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("auth.NewRedisCache: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("auth.NewRedisCache: ping: %w", err)
	}
	return NewRedisCacheWithClient(client, DefaultCachePrefix), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(id string) string { return c.prefix + id }

// Get returns the cached session, or ok=false on a miss.
func (c *RedisCache) Get(ctx context.Context, id string) (*Session, bool, error) {
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("auth.RedisCache.Get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil, false, nil
	}
	return &s, true, nil
}

// Set stores s for ttl. Non-positive ttl is a no-op.
func (c *RedisCache) Set(ctx context.Context, s *Session, ttl time.Duration) error {
	if s == nil || ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("auth.RedisCache.Set: %w", err)
	}
	if err := c.client.Set(ctx, c.key(s.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("auth.RedisCache.Set: %w", err)
	}
	return nil
}

// Delete evicts the given session IDs.
func (c *RedisCache) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("auth.RedisCache.Delete: %w", err)
	}
	return nil
}

// Flush evicts every session under the cache prefix.
func (c *RedisCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("auth.RedisCache.Flush: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("auth.RedisCache.Flush: scan: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("auth.RedisCache.Flush: %w", err)
		}
	}
	return nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("auth.RedisCache.Close: %w", err)
	}
	return nil
}
