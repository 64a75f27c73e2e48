package models

import (
	"errors"
	"fmt"
)

// ExitReason explains why a participant left a step or a workflow.
type ExitReason string

const (
	ExitReasonCompleted  ExitReason = "completed"   // Finished the step normally
	ExitReasonAbandoned  ExitReason = "abandoned"   // Dropped without finishing
	ExitReasonError      ExitReason = "error"       // Step execution failed
	ExitReasonManualExit ExitReason = "manual_exit" // Removed by an operator
)

// ErrInvalidExitReason indicates a tag outside the closed reason set.
var ErrInvalidExitReason = errors.New("invalid exit reason")

// ExitReasons lists every valid reason, in a stable order.
func ExitReasons() []ExitReason {
	return []ExitReason{
		ExitReasonCompleted,
		ExitReasonAbandoned,
		ExitReasonError,
		ExitReasonManualExit,
	}
}

// ParseExitReason validates a raw tag against the closed set.
func ParseExitReason(raw string) (ExitReason, error) {
	switch reason := ExitReason(raw); reason {
	case ExitReasonCompleted, ExitReasonAbandoned, ExitReasonError, ExitReasonManualExit:
		return reason, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidExitReason, raw)
	}
}

// ExitBreakdown is a histogram of exits by reason.
type ExitBreakdown map[ExitReason]int64

// NewExitBreakdown validates reasons and counts and copies the input, so the
// breakdown cannot be mutated through the source map afterwards.
func NewExitBreakdown(counts map[ExitReason]int64) (ExitBreakdown, error) {
	breakdown := make(ExitBreakdown, len(counts))

	for reason, count := range counts {
		if _, err := ParseExitReason(string(reason)); err != nil {
			return nil, err
		}

		if count < 0 {
			return nil, fmt.Errorf("%w: %s=%d", ErrNegativeCount, reason, count)
		}

		breakdown[reason] = count
	}

	return breakdown, nil
}

// Total sums all exits across reasons.
func (b ExitBreakdown) Total() int64 {
	var total int64
	for _, count := range b {
		total += count
	}

	return total
}
