package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProcessingLock is a best-effort cross-instance mutex built on SET NX.
// The TTL bounds how long a crashed holder can block the batch.
type RedisProcessingLock struct {
	client *redis.Client
}

func NewRedisProcessingLock(client *redis.Client) *RedisProcessingLock {
	return &RedisProcessingLock{client: client}
}

func (l *RedisProcessingLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "1", ttl).Result()
}

func (l *RedisProcessingLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
