// Package services provides the analytics use-cases and standardized error
// types for the service layer.
package services

import (
	"errors"
	"fmt"

	"github.com/nurtura/nurtura/pkg/models"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest      = errors.New("invalid request")
	ErrMissingRange        = errors.New("either a range preset or explicit start and end are required")
	ErrInvalidExportFormat = errors.New("invalid export format")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, models.ErrEmptyWorkflowID) ||
		errors.Is(err, ErrMissingRange) ||
		errors.Is(err, ErrInvalidExportFormat) ||
		errors.Is(err, models.ErrInvalidTimeRange) ||
		errors.Is(err, models.ErrInvalidRangePreset) ||
		errors.Is(err, models.ErrInvalidGranularity) ||
		errors.Is(err, models.ErrInvalidEnrollmentSource) ||
		errors.Is(err, models.ErrInvalidExitReason)
}

// IsDataQualityError checks if an error signals malformed stored counters
// rather than a bad request or an internal bug. These map to HTTP 422: the
// request was fine, the recorded data was not.
func IsDataQualityError(err error) bool {
	return errors.Is(err, models.ErrEmptyStepID) ||
		errors.Is(err, models.ErrNegativeCount) ||
		errors.Is(err, models.ErrCompletedExceedsEntered) ||
		errors.Is(err, models.ErrExitedExceedsEntered) ||
		errors.Is(err, models.ErrEnrollmentMismatch) ||
		errors.Is(err, models.ErrCompletionsExceedEnrollments) ||
		errors.Is(err, models.ErrRateOutOfRange)
}
