package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Release gives a held lock back.
type Release func(ctx context.Context) error

// Locker hands out named, expiring run locks.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error)
	Close() error
}

// Lock names used by the pipelines.
const (
	LockRefresh = "lock:refresh"
	LockAnalyze = "lock:analyze"
)

// Only the token that took the lock may delete it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(redisURL, prefix string) (*RedisLocker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisLocker{
		client: client,
		prefix: prefix,
	}, nil
}

func (r *RedisLocker) Close() error {
	return r.client.Close()
}

func (r *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error) {
	key := r.prefix + name
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx error: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errs.ErrConflict)
	}

	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis release error: %w", err)
		}
		return nil
	}, nil
}
