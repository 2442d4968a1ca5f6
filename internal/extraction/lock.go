package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunLock is a Redis-backed single-flight lock for job runs. The in-process
// batch loop is already sequential; this guards against a second process (or
// an overlapping cron trigger) starting a concurrent run. The TTL bounds how
// long a crashed holder can block the next run.
type RunLock struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRunLock connects to Redis and returns a lock on the given key.
func NewRunLock(redisURL, key string, ttl time.Duration, logger *zap.Logger) (*RunLock, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RunLock{rdb: rdb, key: key, ttl: ttl, logger: logger}, nil
}

// Acquire attempts to take the lock. Returns false when another runner holds it.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock.
func (l *RunLock) Release(ctx context.Context) error {
	if err := l.rdb.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (l *RunLock) Close() error {
	return l.rdb.Close()
}
