package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	redisKeySeparator = ":"
	redisScanCount    = 500
	redisOpTimeout    = 2 * time.Second
)

// RedisCache stores msgpack-encoded values under a key prefix so several
// dashboard processes can share results. Redis failures degrade to cache misses.
type RedisCache[T any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisCache wraps client. Keys are stored as "<prefix>:<key>".
func NewRedisCache[T any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache[T]) key(k string) string {
	return c.prefix + redisKeySeparator + k
}

// Get retrieves a value from the cache
func (c *RedisCache[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis cache get failed", "component", "cache", "error", err)
		}
		return zero, false
	}

	v, err := Decode[T](raw)
	if err != nil {
		slog.Warn("Redis cache entry undecodable, dropping", "component", "cache", "error", err)
		c.Delete(key)
		return zero, false
	}
	return v, true
}

// Set stores a value in the cache
func (c *RedisCache[T]) Set(key string, data T) {
	raw, err := Encode(data)
	if err != nil {
		slog.Warn("Redis cache encode failed", "component", "cache", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "component", "cache", "error", err)
	}
}

// Delete removes a key from the cache
func (c *RedisCache[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		slog.Warn("Redis cache delete failed", "component", "cache", "error", err)
	}
}

// Purge deletes every key under the prefix.
func (c *RedisCache[T]) Purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 4*redisOpTimeout)
	defer cancel()

	keys, err := c.scan(ctx)
	if err != nil {
		slog.Warn("Redis cache purge scan failed", "component", "cache", "error", err)
		return
	}
	for start := 0; start < len(keys); start += redisScanCount {
		end := min(start+redisScanCount, len(keys))
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			slog.Warn("Redis cache purge failed", "component", "cache", "error", err)
			return
		}
	}
}

// Size returns the number of keys under the prefix.
func (c *RedisCache[T]) Size() int {
	ctx, cancel := context.WithTimeout(context.Background(), 4*redisOpTimeout)
	defer cancel()
	keys, err := c.scan(ctx)
	if err != nil {
		return 0
	}
	return len(keys)
}

func (c *RedisCache[T]) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.key("*"), redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// Encode serializes v with msgpack.
func Encode[T any](v T) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode deserializes msgpack produced by Encode. Untyped values decode loosely:
// integers come back as int64/uint64 and floats as float64.
func Decode[T any](raw []byte) (T, error) {
	var v T
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode cache entry: %w", err)
	}
	return v, nil
}
