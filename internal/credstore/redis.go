// redis.go -- go-redis backend for sharing one session between processes.
//
// Lets the CLI and a long-running `michame serve` on the same host (or a small
// fleet of consoles) see the same tokens. Keys carry no TTL; the backend decides
// when tokens die and a 401 is how we find out.
package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores credentials as plain Redis strings.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend connects to Redis and pings it before returning.
// The returned backend is safe for concurrent use.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisBackend{rdb: rdb}, nil
}

// Close shuts down the Redis client.
func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys in one DEL. Missing keys are ignored by Redis.
func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
