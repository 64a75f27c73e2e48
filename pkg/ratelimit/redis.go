package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore is a Store backed by a shared redis instance, for deployments
// where several API replicas must count against one window. Redis INCR is
// atomic, so concurrent replicas never observe the same count.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store over an existing redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Increment implements Store. The window lives as the key's TTL: the first
// increment arms the expiry and later increments inherit it, so the window
// is fixed from the first request.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := redisKeyPrefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pttl = pipe.PTTL(ctx, redisKey)

		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	count := incr.Val()
	resetIn := pttl.Val()

	// PTTL reports a negative duration for keys without an expiry; that is
	// the case right after the first increment, or after a lost expiry.
	if count == 1 || resetIn < 0 {
		err = s.client.PExpire(ctx, redisKey, window).Err()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to arm rate limit window: %w", err)
		}

		resetIn = window
	}

	return count, resetIn, nil
}
