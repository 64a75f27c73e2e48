// Package persistence provides the data access abstraction the analytics
// core reads raw event counters and snapshots through.
package persistence

import (
	"context"

	"github.com/nurtura/nurtura/pkg/models"
)

// Persistence is the read-model collaborator for analytics queries. The
// analytics services never talk to storage directly; they consume the raw
// counters a single implementation call returns, so one call is one
// consistent read.
type Persistence interface {
	// WorkflowSteps returns the workflow's step definitions in pipeline
	// order, or ErrWorkflowNotFound when the workflow has no steps defined.
	WorkflowSteps(ctx context.Context, workflowID string) ([]models.StepDefinition, error)

	// StepCounters returns raw per-step event counts recorded inside the
	// range. Steps without events are included with zero counts.
	StepCounters(ctx context.Context, workflowID string, tr models.TimeRange) ([]models.RawStepCounters, error)

	// EnrollmentsBySource breaks total enrollments inside the range down by
	// how participants entered.
	EnrollmentsBySource(ctx context.Context, workflowID string, tr models.TimeRange) (map[models.EnrollmentSource]int64, error)

	// Snapshots returns historical snapshots whose computation time falls
	// inside the range, ordered by computation time ascending.
	Snapshots(ctx context.Context, workflowID string, tr models.TimeRange) ([]*models.MetricsSnapshot, error)

	// SaveSnapshot persists an immutable snapshot.
	SaveSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
