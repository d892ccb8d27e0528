package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const disputeKey = "revenue:disputes"

// RedisDisputeStats keeps the platform-wide dispute timeline in a sorted set
// scored by unix time, so a trailing-window count is a single ZCOUNT.
type RedisDisputeStats struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisDisputeStats(client *redis.Client, retention time.Duration) *RedisDisputeStats {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &RedisDisputeStats{client: client, retention: retention}
}

func (s *RedisDisputeStats) RecordDispute(ctx context.Context, at time.Time) error {
	member := uuid.NewString()
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, disputeKey, redis.Z{Score: float64(at.Unix()), Member: member})
		horizon := at.Add(-s.retention).Unix()
		p.ZRemRangeByScore(ctx, disputeKey, "-inf", strconv.FormatInt(horizon, 10))
		return nil
	})
	return err
}

func (s *RedisDisputeStats) CountSince(ctx context.Context, since time.Time) (int, error) {
	count, err := s.client.ZCount(ctx, disputeKey, strconv.FormatInt(since.Unix(), 10), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
