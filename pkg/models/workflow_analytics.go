package models

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyWorkflowID indicates analytics without a workflow identifier.
	ErrEmptyWorkflowID = errors.New("workflow ID cannot be empty")

	// ErrEnrollmentMismatch indicates the first step's entered count does not
	// match the aggregate's total enrollments.
	ErrEnrollmentMismatch = errors.New("first step entered count must equal total enrollments")

	// ErrCompletionsExceedEnrollments indicates more workflow completions
	// than enrollments.
	ErrCompletionsExceedEnrollments = errors.New("total completions cannot exceed total enrollments")
)

// WorkflowAnalytics is the aggregate root for one workflow's metrics over
// one time range. Steps are held in pipeline order, not insertion order.
type WorkflowAnalytics struct {
	WorkflowID       string         `json:"workflow_id"`
	Range            TimeRange      `json:"range"`
	Steps            []*StepMetrics `json:"steps"`
	TotalEnrollments int64          `json:"total_enrollments"`
	TotalCompletions int64          `json:"total_completions"`
	ConversionRate   ConversionRate `json:"conversion_rate"`
	CompletionRate   CompletionRate `json:"completion_rate"`
}

// NewWorkflowAnalytics assembles and validates the aggregate. Steps may be
// supplied in any order; they are sorted by pipeline position. The aggregate
// is rejected, never clamped, when its counters are inconsistent.
func NewWorkflowAnalytics(workflowID string, tr TimeRange, steps []*StepMetrics, enrollments, completions int64, conversion, completion Rate) (*WorkflowAnalytics, error) {
	if workflowID == "" {
		return nil, ErrEmptyWorkflowID
	}

	if enrollments < 0 || completions < 0 {
		return nil, fmt.Errorf("%w: totals %d/%d", ErrNegativeCount, enrollments, completions)
	}

	if completions > enrollments {
		return nil, fmt.Errorf("%w: %d completions of %d enrollments", ErrCompletionsExceedEnrollments, completions, enrollments)
	}

	ordered := make([]*StepMetrics, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	if len(ordered) > 0 && ordered[0].EnteredCount != enrollments {
		return nil, fmt.Errorf("%w: first step %s entered %d, total enrollments %d",
			ErrEnrollmentMismatch, ordered[0].StepID, ordered[0].EnteredCount, enrollments)
	}

	return &WorkflowAnalytics{
		WorkflowID:       workflowID,
		Range:            tr,
		Steps:            ordered,
		TotalEnrollments: enrollments,
		TotalCompletions: completions,
		ConversionRate:   conversion,
		CompletionRate:   completion,
	}, nil
}

// Step returns the metrics for a step ID, or nil when the aggregate does not
// track it.
func (a *WorkflowAnalytics) Step(stepID string) *StepMetrics {
	for _, step := range a.Steps {
		if step.StepID == stepID {
			return step
		}
	}

	return nil
}
