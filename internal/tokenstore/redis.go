package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 5 * time.Second

// Redis keeps the token under a single key, shared by every client pointed at the
// same server.
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedis connects to the server at url and verifies the connection.
func NewRedis(url, key string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisWithClient(rdb, key, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(rdb *redis.Client, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = "taskboard:token"
	}
	return &Redis{rdb: rdb, key: key, ttl: ttl}
}

func (r *Redis) Token() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	token, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return token, nil
}

// SetToken stores token, expiring after the configured TTL when it is positive.
func (r *Redis) SetToken(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := r.rdb.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (r *Redis) ClearToken() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Close releases the connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
