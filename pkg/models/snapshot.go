package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNilAnalytics indicates a snapshot taken of a nil aggregate.
var ErrNilAnalytics = errors.New("analytics cannot be nil")

// MetricsSnapshot is an immutable point-in-time capture of a workflow's
// aggregate counters, used to build trend series. It copies the raw counters
// rather than referencing the live aggregate, so later recomputation cannot
// rewrite history.
type MetricsSnapshot struct {
	ID               string         `json:"id"`
	WorkflowID       string         `json:"workflow_id"`
	Range            TimeRange      `json:"range"`
	TotalEnrollments int64          `json:"total_enrollments"`
	TotalCompletions int64          `json:"total_completions"`
	ReachedFinalStep int64          `json:"reached_final_step"`
	ConversionRate   ConversionRate `json:"conversion_rate"`
	CompletionRate   CompletionRate `json:"completion_rate"`
	ComputedAt       time.Time      `json:"computed_at"`
}

// NewMetricsSnapshot captures an aggregate at computedAt.
func NewMetricsSnapshot(analytics *WorkflowAnalytics, computedAt time.Time) (*MetricsSnapshot, error) {
	if analytics == nil {
		return nil, ErrNilAnalytics
	}

	var reachedFinal int64
	if len(analytics.Steps) > 0 {
		reachedFinal = analytics.Steps[len(analytics.Steps)-1].EnteredCount
	}

	return &MetricsSnapshot{
		ID:               uuid.New().String(),
		WorkflowID:       analytics.WorkflowID,
		Range:            analytics.Range,
		TotalEnrollments: analytics.TotalEnrollments,
		TotalCompletions: analytics.TotalCompletions,
		ReachedFinalStep: reachedFinal,
		ConversionRate:   analytics.ConversionRate,
		CompletionRate:   analytics.CompletionRate,
		ComputedAt:       computedAt.UTC(),
	}, nil
}
