package models

import (
	"errors"
	"fmt"
)

// EnrollmentSource identifies how a participant entered a workflow.
type EnrollmentSource string

const (
	EnrollmentSourceManual  EnrollmentSource = "manual"  // Added by an operator
	EnrollmentSourceTrigger EnrollmentSource = "trigger" // Entered via a workflow trigger
	EnrollmentSourceImport  EnrollmentSource = "import"  // Bulk import
	EnrollmentSourceAPI     EnrollmentSource = "api"     // External API call
)

// ErrInvalidEnrollmentSource indicates a tag outside the closed source set.
var ErrInvalidEnrollmentSource = errors.New("invalid enrollment source")

// EnrollmentSources lists every valid source, in a stable order.
func EnrollmentSources() []EnrollmentSource {
	return []EnrollmentSource{
		EnrollmentSourceManual,
		EnrollmentSourceTrigger,
		EnrollmentSourceImport,
		EnrollmentSourceAPI,
	}
}

// ParseEnrollmentSource validates a raw tag against the closed set.
func ParseEnrollmentSource(raw string) (EnrollmentSource, error) {
	switch source := EnrollmentSource(raw); source {
	case EnrollmentSourceManual, EnrollmentSourceTrigger, EnrollmentSourceImport, EnrollmentSourceAPI:
		return source, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEnrollmentSource, raw)
	}
}
