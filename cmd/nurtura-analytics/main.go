package main

import (
	"context"
	"os"
	"time"

	"github.com/nurtura/nurtura/pkg/cmd"
	"github.com/nurtura/nurtura/pkg/log"
	"github.com/nurtura/nurtura/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPort            = 9091
	defaultRateLimit       = 100
	defaultRateLimitWindow = time.Minute
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "nurtura-analytics",
		Usage:                 "Serve workflow analytics, funnels and trends",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider for the audit trail (memory)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for shared rate-limit counters; in-memory counters when unset",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Usage:   "Export requests allowed per caller per window",
				Value:   defaultRateLimit,
				Sources: cli.EnvVars("RATE_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "rate-limit-window",
				Usage:   "Rate limit window duration",
				Value:   defaultRateLimitWindow,
				Sources: cli.EnvVars("RATE_LIMIT_WINDOW"),
			},
			&cli.BoolFlag{
				Name:    "rate-limit-fail-open",
				Usage:   "Allow requests through when the rate limit store is unavailable",
				Value:   true,
				Sources: cli.EnvVars("RATE_LIMIT_FAIL_OPEN"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Nurtura analytics API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"))
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			limiter, err := cmd.NewRateLimiter(
				logger,
				command.String("redis-url"),
				int64(command.Int("rate-limit")),
				command.Duration("rate-limit-window"),
				command.Bool("rate-limit-fail-open"),
			)
			if err != nil {
				return err
			}

			var tracer trace.Tracer

			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "nurtura-analytics")
				if err != nil {
					return err
				}
			}

			api := NewAPI(
				logger,
				persistence,
				eventBus,
				limiter,
				tracer,
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start analytics API", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
