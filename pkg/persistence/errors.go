// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates no workflow exists for the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrSnapshotNotFound indicates a snapshot was not found by the given identifier.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrNilSnapshot indicates an attempt to persist a nil snapshot.
	ErrNilSnapshot = errors.New("snapshot cannot be nil")
)

// QueryError wraps analytics read failures with the operation and workflow
// they belonged to.
type QueryError struct {
	Op         string // Operation being performed (e.g., "StepCounters", "SaveSnapshot")
	WorkflowID string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsSnapshotNotFound checks if an error indicates a missing snapshot.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}
