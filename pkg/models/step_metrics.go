package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyStepID indicates a step metric without an identifier.
	ErrEmptyStepID = errors.New("step ID cannot be empty")

	// ErrCompletedExceedsEntered indicates more completions than entries for
	// a step. This is malformed input data, not an internal failure.
	ErrCompletedExceedsEntered = errors.New("completed count cannot exceed entered count")

	// ErrExitedExceedsEntered indicates more exits than entries for a step.
	ErrExitedExceedsEntered = errors.New("exited count cannot exceed entered count")
)

// StepMetrics is the per-step aggregate inside a WorkflowAnalytics. It is
// owned by exactly one aggregate and only the analytics services mutate it.
type StepMetrics struct {
	StepID          string        `json:"step_id"`
	Position        int           `json:"position"` // Pipeline order, zero-based
	EnteredCount    int64         `json:"entered_count"`
	ExitedCount     int64         `json:"exited_count"`
	CompletedCount  int64         `json:"completed_count"`
	AverageDuration time.Duration `json:"average_duration"`
	ExitBreakdown   ExitBreakdown `json:"exit_breakdown,omitempty"`
}

// NewStepMetrics validates raw counters for a single step. Zero counts are a
// valid business state; negatives and completed > entered are not.
func NewStepMetrics(stepID string, position int, entered, exited, completed int64, avgDuration time.Duration, exits map[ExitReason]int64) (*StepMetrics, error) {
	if stepID == "" {
		return nil, ErrEmptyStepID
	}

	if entered < 0 || exited < 0 || completed < 0 {
		return nil, fmt.Errorf("%w: step %s counters %d/%d/%d", ErrNegativeCount, stepID, entered, exited, completed)
	}

	if completed > entered {
		return nil, fmt.Errorf("%w: step %s has %d completed of %d entered", ErrCompletedExceedsEntered, stepID, completed, entered)
	}

	if exited > entered {
		return nil, fmt.Errorf("%w: step %s has %d exited of %d entered", ErrExitedExceedsEntered, stepID, exited, entered)
	}

	if avgDuration < 0 {
		return nil, fmt.Errorf("%w: step %s average duration %s", ErrNegativeCount, stepID, avgDuration)
	}

	breakdown, err := NewExitBreakdown(exits)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", stepID, err)
	}

	return &StepMetrics{
		StepID:          stepID,
		Position:        position,
		EnteredCount:    entered,
		ExitedCount:     exited,
		CompletedCount:  completed,
		AverageDuration: avgDuration,
		ExitBreakdown:   breakdown,
	}, nil
}

// CompletionRate recomputes the step's completion ratio from raw counters.
// A step nobody entered completes at 0.0 rather than erroring.
func (s *StepMetrics) CompletionRate() Rate {
	if s.EnteredCount == 0 {
		return Rate{}
	}

	rate, err := RateOf(s.CompletedCount, s.EnteredCount)
	if err != nil {
		// Factory invariants guarantee completed <= entered.
		return Rate{}
	}

	return rate
}
