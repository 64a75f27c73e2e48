// Package postgresql provides the PostgreSQL read-model for workflow analytics.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/nurtura/nurtura/pkg/models"
	"github.com/nurtura/nurtura/pkg/persistence"
	"github.com/nurtura/nurtura/pkg/persistence/sqlbase"
)

// Persistence implements the analytics persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
	repo   *AnalyticsRepository
}

// NewPersistence connects, migrates and returns a PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:     database,
		logger: logger,
		repo:   NewAnalyticsRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// WorkflowSteps returns the workflow's step definitions in pipeline order.
func (p *Persistence) WorkflowSteps(ctx context.Context, workflowID string) ([]models.StepDefinition, error) {
	return p.repo.WorkflowSteps(ctx, workflowID)
}

// StepCounters returns raw per-step event counts recorded inside the range.
func (p *Persistence) StepCounters(ctx context.Context, workflowID string, tr models.TimeRange) ([]models.RawStepCounters, error) {
	return p.repo.StepCounters(ctx, workflowID, tr)
}

// EnrollmentsBySource breaks enrollments inside the range down by source.
func (p *Persistence) EnrollmentsBySource(ctx context.Context, workflowID string, tr models.TimeRange) (map[models.EnrollmentSource]int64, error) {
	return p.repo.EnrollmentsBySource(ctx, workflowID, tr)
}

// Snapshots returns snapshots computed inside the range, oldest first.
func (p *Persistence) Snapshots(ctx context.Context, workflowID string, tr models.TimeRange) ([]*models.MetricsSnapshot, error) {
	return p.repo.Snapshots(ctx, workflowID, tr)
}

// SaveSnapshot persists an immutable snapshot.
func (p *Persistence) SaveSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error {
	return p.repo.SaveSnapshot(ctx, snapshot)
}

var _ persistence.Persistence = (*Persistence)(nil)
