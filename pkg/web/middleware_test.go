package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/nurtura/nurtura/pkg/eventbus"
	"github.com/nurtura/nurtura/pkg/events"
	"github.com/nurtura/nurtura/pkg/ratelimit"
	"github.com/nurtura/nurtura/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) captured() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event{}, p.events...)
}

func setupRateLimitedApp(t *testing.T, limit int64) (*fiber.App, *recordingPublisher) {
	t.Helper()

	store, err := ratelimit.NewMemoryStore(0)
	require.NoError(t, err)

	limiter, err := ratelimit.NewLimiter(store, ratelimit.Config{
		Limit:  limit,
		Window: time.Minute,
	}, slog.Default())
	require.NoError(t, err)

	bus := &recordingPublisher{}

	app := fiber.New()
	app.Post("/workflows/:id/export", func(c fiber.Ctx) error {
		return c.SendString("exported")
	}, web.RateLimit(limiter, bus, "export"))

	return app, bus
}

func exportRequest(tenant, user string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/workflows/wf-1/export", nil)

	if tenant != "" {
		req.Header.Set(web.TenantHeader, tenant)
	}

	if user != "" {
		req.Header.Set(web.UserHeader, user)
	}

	return req
}

func TestRateLimitMiddleware_DeniesOverLimit(t *testing.T) {
	app, bus := setupRateLimitedApp(t, 2)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(exportRequest("acme", "u-1"))
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	}

	resp, err := app.Test(exportRequest("acme", "u-1"))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	captured := bus.captured()
	require.Len(t, captured, 1)

	exceeded, ok := captured[0].(events.RateLimitExceeded)
	require.True(t, ok)
	assert.Equal(t, "acme:u-1:export", exceeded.Key)
	assert.Equal(t, int64(2), exceeded.Limit)
	assert.Equal(t, "acme", exceeded.TenantID)
}

func TestRateLimitMiddleware_KeysAreIndependent(t *testing.T) {
	app, _ := setupRateLimitedApp(t, 1)

	resp, err := app.Test(exportRequest("acme", "u-1"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Same tenant, different user: a fresh counter.
	resp, err = app.Test(exportRequest("acme", "u-2"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Different tenant, same user name.
	resp, err = app.Test(exportRequest("globex", "u-1"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(exportRequest("acme", "u-1"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitMiddleware_AnonymousFallsBackToIP(t *testing.T) {
	app, bus := setupRateLimitedApp(t, 1)

	resp, err := app.Test(exportRequest("", ""))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(exportRequest("", ""))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	captured := bus.captured()
	require.Len(t, captured, 1)

	exceeded, ok := captured[0].(events.RateLimitExceeded)
	require.True(t, ok)
	assert.Contains(t, exceeded.Key, "anonymous:")
}
