// Package main provides the nurtura analytics API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/nurtura/nurtura/pkg/eventbus"
	"github.com/nurtura/nurtura/pkg/persistence"
	"github.com/nurtura/nurtura/pkg/ratelimit"
	"github.com/nurtura/nurtura/pkg/services"
	"github.com/nurtura/nurtura/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	limiter     *ratelimit.Limiter
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	limiter *ratelimit.Limiter,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		limiter:     limiter,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	analyticsService := services.NewAnalytics(a.persistence, a.eventBus, a.tracer)

	handlers := web.NewAPIHandlers(analyticsService, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Nurtura Analytics API")
	})

	w := app.Group("/workflows")
	w.Get("/:id/analytics", handlers.GetWorkflowAnalytics)
	w.Get("/:id/funnel", handlers.GetFunnel)
	w.Get("/:id/trends", handlers.GetTrends)
	w.Get("/:id/performance", handlers.GetActionPerformance)
	w.Post("/:id/export", handlers.ExportAnalytics, web.RateLimit(a.limiter, a.eventBus, "export"))

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
