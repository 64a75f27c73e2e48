package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nurtura/nurtura/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		validation  bool
		dataQuality bool
	}{
		{name: "invalid request", err: ErrInvalidRequest, validation: true},
		{name: "missing range", err: ErrMissingRange, validation: true},
		{name: "export format", err: ErrInvalidExportFormat, validation: true},
		{name: "empty workflow id", err: models.ErrEmptyWorkflowID, validation: true},
		{name: "wrapped empty workflow id", err: fmt.Errorf("compute: %w", models.ErrEmptyWorkflowID), validation: true},
		{name: "preset", err: models.ErrInvalidRangePreset, validation: true},
		{name: "empty step id", err: models.ErrEmptyStepID, dataQuality: true},
		{name: "negative count", err: models.ErrNegativeCount, dataQuality: true},
		{name: "completed exceeds entered", err: models.ErrCompletedExceedsEntered, dataQuality: true},
		{name: "enrollment mismatch", err: models.ErrEnrollmentMismatch, dataQuality: true},
		{name: "unrelated", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidationError(tt.err))
			assert.Equal(t, tt.dataQuality, IsDataQualityError(tt.err))
		})
	}
}

func TestServiceErrorUnwrapsTarget(t *testing.T) {
	err := &ServiceError{Op: "GetTrends", Code: "invalid_request", Err: ErrMissingRange}

	assert.ErrorIs(t, err, ErrMissingRange)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "GetTrends")
}
