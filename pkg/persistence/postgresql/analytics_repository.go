package postgresql

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/nurtura/nurtura/pkg/models"
	"github.com/nurtura/nurtura/pkg/persistence"
)

// AnalyticsRepository runs the aggregate SQL behind the analytics read-model.
type AnalyticsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAnalyticsRepository creates a new analytics repository.
func NewAnalyticsRepository(db *sql.DB, logger *slog.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, logger: logger}
}

// WorkflowSteps returns the workflow's step definitions in pipeline order.
func (r *AnalyticsRepository) WorkflowSteps(ctx context.Context, workflowID string) ([]models.StepDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step_id, name, position
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY position`, workflowID)
	if err != nil {
		return nil, &persistence.QueryError{Op: "WorkflowSteps", WorkflowID: workflowID, Err: err}
	}
	defer rows.Close()

	var steps []models.StepDefinition

	for rows.Next() {
		var step models.StepDefinition

		err = rows.Scan(&step.StepID, &step.Name, &step.Position)
		if err != nil {
			return nil, &persistence.QueryError{Op: "WorkflowSteps", WorkflowID: workflowID, Err: err}
		}

		steps = append(steps, step)
	}

	if err = rows.Err(); err != nil {
		return nil, &persistence.QueryError{Op: "WorkflowSteps", WorkflowID: workflowID, Err: err}
	}

	if len(steps) == 0 {
		return nil, persistence.ErrWorkflowNotFound
	}

	return steps, nil
}

// StepCounters aggregates step events inside the range for every defined
// step. Steps without events get a zero-count row via the left join.
func (r *AnalyticsRepository) StepCounters(ctx context.Context, workflowID string, tr models.TimeRange) ([]models.RawStepCounters, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			s.step_id,
			s.position,
			COUNT(e.id) FILTER (WHERE e.event_type = 'entered'),
			COUNT(e.id) FILTER (WHERE e.event_type = 'exited'),
			COUNT(e.id) FILTER (WHERE e.event_type = 'completed'),
			COALESCE(AVG(e.duration_ms) FILTER (WHERE e.event_type = 'completed'), 0)
		FROM workflow_steps s
		LEFT JOIN step_events e
			ON e.workflow_id = s.workflow_id
			AND e.step_id = s.step_id
			AND e.occurred_at BETWEEN $2 AND $3
		WHERE s.workflow_id = $1
		GROUP BY s.step_id, s.position
		ORDER BY s.position`, workflowID, tr.Start, tr.End)
	if err != nil {
		return nil, &persistence.QueryError{Op: "StepCounters", WorkflowID: workflowID, Err: err}
	}
	defer rows.Close()

	var counters []models.RawStepCounters

	for rows.Next() {
		var (
			raw   models.RawStepCounters
			avgMs float64
		)

		err = rows.Scan(&raw.StepID, &raw.Position, &raw.Entered, &raw.Exited, &raw.Completed, &avgMs)
		if err != nil {
			return nil, &persistence.QueryError{Op: "StepCounters", WorkflowID: workflowID, Err: err}
		}

		raw.AverageDuration = time.Duration(avgMs) * time.Millisecond

		counters = append(counters, raw)
	}

	if err = rows.Err(); err != nil {
		return nil, &persistence.QueryError{Op: "StepCounters", WorkflowID: workflowID, Err: err}
	}

	if len(counters) == 0 {
		return nil, persistence.ErrWorkflowNotFound
	}

	exits, err := r.exitBreakdowns(ctx, workflowID, tr)
	if err != nil {
		return nil, err
	}

	for i := range counters {
		counters[i].Exits = exits[counters[i].StepID]
	}

	return counters, nil
}

// exitBreakdowns returns per-step exit histograms inside the range.
func (r *AnalyticsRepository) exitBreakdowns(ctx context.Context, workflowID string, tr models.TimeRange) (map[string]map[models.ExitReason]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step_id, exit_reason, COUNT(*)
		FROM step_events
		WHERE workflow_id = $1
			AND event_type = 'exited'
			AND exit_reason IS NOT NULL
			AND occurred_at BETWEEN $2 AND $3
		GROUP BY step_id, exit_reason`, workflowID, tr.Start, tr.End)
	if err != nil {
		return nil, &persistence.QueryError{Op: "ExitBreakdowns", WorkflowID: workflowID, Err: err}
	}
	defer rows.Close()

	breakdowns := make(map[string]map[models.ExitReason]int64)

	for rows.Next() {
		var (
			stepID string
			raw    string
			count  int64
		)

		err = rows.Scan(&stepID, &raw, &count)
		if err != nil {
			return nil, &persistence.QueryError{Op: "ExitBreakdowns", WorkflowID: workflowID, Err: err}
		}

		reason, err := models.ParseExitReason(raw)
		if err != nil {
			return nil, &persistence.QueryError{Op: "ExitBreakdowns", WorkflowID: workflowID, Err: err}
		}

		if breakdowns[stepID] == nil {
			breakdowns[stepID] = make(map[models.ExitReason]int64)
		}

		breakdowns[stepID][reason] = count
	}

	if err = rows.Err(); err != nil {
		return nil, &persistence.QueryError{Op: "ExitBreakdowns", WorkflowID: workflowID, Err: err}
	}

	return breakdowns, nil
}

// EnrollmentsBySource breaks enrollments inside the range down by source.
func (r *AnalyticsRepository) EnrollmentsBySource(ctx context.Context, workflowID string, tr models.TimeRange) (map[models.EnrollmentSource]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COUNT(*)
		FROM enrollment_events
		WHERE workflow_id = $1 AND occurred_at BETWEEN $2 AND $3
		GROUP BY source`, workflowID, tr.Start, tr.End)
	if err != nil {
		return nil, &persistence.QueryError{Op: "EnrollmentsBySource", WorkflowID: workflowID, Err: err}
	}
	defer rows.Close()

	sources := make(map[models.EnrollmentSource]int64)

	for rows.Next() {
		var (
			raw   string
			count int64
		)

		err = rows.Scan(&raw, &count)
		if err != nil {
			return nil, &persistence.QueryError{Op: "EnrollmentsBySource", WorkflowID: workflowID, Err: err}
		}

		source, err := models.ParseEnrollmentSource(raw)
		if err != nil {
			return nil, &persistence.QueryError{Op: "EnrollmentsBySource", WorkflowID: workflowID, Err: err}
		}

		sources[source] = count
	}

	if err = rows.Err(); err != nil {
		return nil, &persistence.QueryError{Op: "EnrollmentsBySource", WorkflowID: workflowID, Err: err}
	}

	return sources, nil
}

// Snapshots returns snapshots computed inside the range, oldest first.
func (r *AnalyticsRepository) Snapshots(ctx context.Context, workflowID string, tr models.TimeRange) ([]*models.MetricsSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workflow_id, range_start, range_end,
			total_enrollments, total_completions, reached_final_step,
			conversion_rate, completion_rate, computed_at
		FROM metrics_snapshots
		WHERE workflow_id = $1 AND computed_at BETWEEN $2 AND $3
		ORDER BY computed_at`, workflowID, tr.Start, tr.End)
	if err != nil {
		return nil, &persistence.QueryError{Op: "Snapshots", WorkflowID: workflowID, Err: err}
	}
	defer rows.Close()

	var snapshots []*models.MetricsSnapshot

	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, &persistence.QueryError{Op: "Snapshots", WorkflowID: workflowID, Err: err}
		}

		snapshots = append(snapshots, snapshot)
	}

	if err = rows.Err(); err != nil {
		return nil, &persistence.QueryError{Op: "Snapshots", WorkflowID: workflowID, Err: err}
	}

	return snapshots, nil
}

func scanSnapshot(rows *sql.Rows) (*models.MetricsSnapshot, error) {
	var (
		snapshot   models.MetricsSnapshot
		conversion float64
		completion float64
		rangeStart time.Time
		rangeEnd   time.Time
	)

	err := rows.Scan(
		&snapshot.ID,
		&snapshot.WorkflowID,
		&rangeStart,
		&rangeEnd,
		&snapshot.TotalEnrollments,
		&snapshot.TotalCompletions,
		&snapshot.ReachedFinalStep,
		&conversion,
		&completion,
		&snapshot.ComputedAt,
	)
	if err != nil {
		return nil, err
	}

	snapshot.Range, err = models.NewTimeRange(rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	snapshot.ConversionRate, err = models.NewRate(conversion)
	if err != nil {
		return nil, err
	}

	snapshot.CompletionRate, err = models.NewRate(completion)
	if err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// SaveSnapshot persists an immutable snapshot.
func (r *AnalyticsRepository) SaveSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error {
	if snapshot == nil {
		return persistence.ErrNilSnapshot
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metrics_snapshots (
			id, workflow_id, range_start, range_end,
			total_enrollments, total_completions, reached_final_step,
			conversion_rate, completion_rate, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snapshot.ID,
		snapshot.WorkflowID,
		snapshot.Range.Start,
		snapshot.Range.End,
		snapshot.TotalEnrollments,
		snapshot.TotalCompletions,
		snapshot.ReachedFinalStep,
		snapshot.ConversionRate.Value(),
		snapshot.CompletionRate.Value(),
		snapshot.ComputedAt,
	)
	if err != nil {
		return &persistence.QueryError{Op: "SaveSnapshot", WorkflowID: snapshot.WorkflowID, Err: err}
	}

	return nil
}
