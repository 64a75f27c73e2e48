// Package ratelimit provides a fixed-window request limiter used to bound
// workflow-mutation throughput per tenant, user and action.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrInvalidLimit indicates a non-positive request limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidWindow indicates a non-positive window duration.
	ErrInvalidWindow = errors.New("window must be positive")

	// ErrEmptyKey indicates a rate-limit check without a key.
	ErrEmptyKey = errors.New("rate limit key cannot be empty")

	// ErrStoreUnavailable wraps store failures so callers can tell an
	// unavailable backend apart from an exhausted limit.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

// Decision is the outcome of a rate-limit check. Exhaustion is a normal
// outcome, not an error: a denied decision always carries a retry hint.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int64         `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Config bounds one limiter. FailOpen decides what happens when the backing
// store is unavailable: true allows the request through, false denies it.
// Either way the store error is surfaced to the caller; it is never silently
// swallowed.
type Config struct {
	Limit    int64
	Window   time.Duration
	FailOpen bool
}

// Validate rejects configurations that could never admit a request.
func (c Config) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, c.Limit)
	}

	if c.Window <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidWindow, c.Window)
	}

	return nil
}

// Store is the per-key window counter backend. Increment must be atomic: it
// opens a fresh window with count 1 when none exists or the current one has
// elapsed, otherwise increments, and returns the post-increment count along
// with the time left until the window resets. Two concurrent calls must
// never observe the same count.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Limiter gates requests per key against a fixed window.
type Limiter struct {
	store  Store
	config Config
	logger *slog.Logger
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store Store, config Config, logger *slog.Logger) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Limiter{
		store:  store,
		config: config,
		logger: logger.With("module", "ratelimit"),
	}, nil
}

// Allow checks and consumes one request for key. When the store fails, the
// decision follows the configured failure policy and the wrapped store error
// is returned alongside it.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if key == "" {
		return Decision{}, ErrEmptyKey
	}

	count, resetIn, err := l.store.Increment(ctx, key, l.config.Window)
	if err != nil {
		l.logger.ErrorContext(ctx, "Rate limit store failure",
			"key", key,
			"fail_open", l.config.FailOpen,
			"error", err)

		return Decision{Allowed: l.config.FailOpen}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if count > l.config.Limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: resetIn,
		}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: l.config.Limit - count,
	}, nil
}

// Limit returns the configured per-window request limit.
func (l *Limiter) Limit() int64 {
	return l.config.Limit
}
