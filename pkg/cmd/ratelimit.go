package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nurtura/nurtura/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// NewRateLimiter builds the request limiter. With a Redis URL the counters
// are shared across replicas; without one they live in process memory.
func NewRateLimiter(logger *slog.Logger, redisURL string, limit int64, window time.Duration, failOpen bool) (*ratelimit.Limiter, error) {
	var store ratelimit.Store

	if redisURL != "" {
		options, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}

		store = ratelimit.NewRedisStore(redis.NewClient(options))
	} else {
		memoryStore, err := ratelimit.NewMemoryStore(0)
		if err != nil {
			return nil, err
		}

		store = memoryStore
	}

	return ratelimit.NewLimiter(store, ratelimit.Config{
		Limit:    limit,
		Window:   window,
		FailOpen: failOpen,
	}, logger)
}
