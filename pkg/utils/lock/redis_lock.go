package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLock serializes work across processes. The relay uses it to
// serialize invocations per sender account: the pending nonce is shared
// mutable state and concurrent invocations from the same sender would
// collide on it.
type DistributedLock interface {
	// Acquire tries to take the lock. Returns (false, nil) when held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the lock.
	Release(ctx context.Context, key string) error
}

// RedisLock implements DistributedLock on Redis SETNX.
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	success, err := l.client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, "lock:"+key).Err()
}
