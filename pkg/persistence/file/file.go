// Package file provides a file-based persistence implementation for local
// development and tests. Raw events are stored as JSON documents per
// workflow and aggregated in memory at query time.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/nurtura/nurtura/pkg/models"
	"github.com/nurtura/nurtura/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
	repo *WorkflowDataRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root: cleanRoot,
		repo: NewWorkflowDataRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// SeedWorkflow stores a workflow's step definitions and raw events, replacing
// any previous document. Primarily used by tests and local fixtures.
func (fp *Persistence) SeedWorkflow(ctx context.Context, workflowID string, data *WorkflowData) error {
	return fp.repo.Save(ctx, workflowID, data)
}

// WorkflowSteps returns the workflow's step definitions in pipeline order.
func (fp *Persistence) WorkflowSteps(ctx context.Context, workflowID string) ([]models.StepDefinition, error) {
	return fp.repo.Steps(ctx, workflowID)
}

// StepCounters aggregates the stored raw events inside the range.
func (fp *Persistence) StepCounters(ctx context.Context, workflowID string, tr models.TimeRange) ([]models.RawStepCounters, error) {
	return fp.repo.Counters(ctx, workflowID, tr)
}

// EnrollmentsBySource breaks enrollments inside the range down by source.
func (fp *Persistence) EnrollmentsBySource(ctx context.Context, workflowID string, tr models.TimeRange) (map[models.EnrollmentSource]int64, error) {
	return fp.repo.EnrollmentsBySource(ctx, workflowID, tr)
}

// Snapshots returns snapshots computed inside the range, oldest first.
func (fp *Persistence) Snapshots(ctx context.Context, workflowID string, tr models.TimeRange) ([]*models.MetricsSnapshot, error) {
	return fp.repo.Snapshots(ctx, workflowID, tr)
}

// SaveSnapshot persists an immutable snapshot.
func (fp *Persistence) SaveSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error {
	return fp.repo.SaveSnapshot(ctx, snapshot)
}

var _ persistence.Persistence = (*Persistence)(nil)
