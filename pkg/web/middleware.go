package web

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/nurtura/nurtura/pkg/eventbus"
	"github.com/nurtura/nurtura/pkg/events"
	"github.com/nurtura/nurtura/pkg/log"
	"github.com/nurtura/nurtura/pkg/ratelimit"
)

// RateLimit gates one action behind the limiter, keyed per tenant, user and
// action. Denials are reported as RFC 7807 problems with a Retry-After hint
// and audited on the event bus; they are never treated as handler errors.
func RateLimit(limiter *ratelimit.Limiter, bus eventbus.EventPublisher, action string) fiber.Handler {
	logger := log.WithModule("web")

	return func(c fiber.Ctx) error {
		key := rateLimitKey(c, action)

		decision, err := limiter.Allow(c.Context(), key)
		if err != nil && decision.Allowed {
			// Store failure with a fail-open policy: let the request through.
			return c.Next()
		}

		if err != nil {
			problem := problems.NewStatusProblem(503).
				WithInstance(c.Path()).
				WithType("rate_limit_unavailable").
				WithDetail("rate limiting is temporarily unavailable")

			return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
		}

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))

			if bus != nil {
				publishErr := bus.Publish(c.Context(), key, events.RateLimitExceeded{
					BaseEvent:  events.NewBaseEvent(events.RateLimitExceededEvent, c.Get(TenantHeader)),
					Key:        key,
					Limit:      limiter.Limit(),
					RetryAfter: decision.RetryAfter,
				})
				if publishErr != nil {
					logger.WarnContext(c.Context(), "Failed to publish rate limit event",
						"key", key,
						"error", publishErr)
				}
			}

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

			problem := problems.NewStatusProblem(429).
				WithInstance(c.Path()).
				WithType("rate_limit_exceeded").
				WithDetail("request rate limit exceeded, retry in " + strconv.Itoa(retryAfter) + "s")

			return c.Status(fiber.StatusTooManyRequests).JSON(problem)
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		return c.Next()
	}
}

// rateLimitKey scopes counting to tenant:user:action. Anonymous callers fall
// back to the client IP so one unidentified caller cannot starve the rest.
func rateLimitKey(c fiber.Ctx, action string) string {
	tenant := c.Get(TenantHeader)
	if tenant == "" {
		tenant = "anonymous"
	}

	user := c.Get(UserHeader)
	if user == "" {
		user = c.IP()
	}

	return tenant + ":" + user + ":" + action
}
