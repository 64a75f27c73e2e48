package analytics

import (
	"testing"
	"time"

	"github.com/nurtura/nurtura/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekRange(t *testing.T) models.TimeRange {
	t.Helper()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tr, err := models.NewTimeRange(start, start.AddDate(0, 0, 7))
	require.NoError(t, err)

	return tr
}

func TestCalculator_Compute(t *testing.T) {
	calculator := NewCalculator(NewConversion())

	raw := []models.RawStepCounters{
		{StepID: "wait", Position: 1, Entered: 40, Exited: 30, Completed: 10, AverageDuration: 48 * time.Hour},
		{StepID: "welcome", Position: 0, Entered: 100, Exited: 60, Completed: 40, AverageDuration: time.Hour,
			Exits: map[models.ExitReason]int64{models.ExitReasonCompleted: 40, models.ExitReasonAbandoned: 20}},
	}

	result, err := calculator.Compute("wf-1", weekRange(t), raw)
	require.NoError(t, err)

	assert.Equal(t, "wf-1", result.WorkflowID)
	assert.Equal(t, int64(100), result.TotalEnrollments)
	assert.Equal(t, int64(10), result.TotalCompletions)

	// Steps come back in pipeline order regardless of input order.
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "welcome", result.Steps[0].StepID)
	assert.Equal(t, "wait", result.Steps[1].StepID)

	// 40 of 100 reached the final step; 10 of 100 completed it.
	assert.InDelta(t, 0.4, result.ConversionRate.Value(), 1e-9)
	assert.InDelta(t, 0.1, result.CompletionRate.Value(), 1e-9)
}

func TestCalculator_Compute_NoData(t *testing.T) {
	calculator := NewCalculator(NewConversion())

	result, err := calculator.Compute("wf-1", weekRange(t), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Steps)
	assert.Zero(t, result.TotalEnrollments)
	assert.True(t, result.ConversionRate.IsZero())
	assert.True(t, result.CompletionRate.IsZero())
}

func TestCalculator_Compute_ZeroCounters(t *testing.T) {
	calculator := NewCalculator(NewConversion())

	raw := []models.RawStepCounters{
		{StepID: "a", Position: 0},
		{StepID: "b", Position: 1},
	}

	result, err := calculator.Compute("wf-1", weekRange(t), raw)
	require.NoError(t, err)
	assert.True(t, result.ConversionRate.IsZero())
}

func TestCalculator_Compute_LastStepExceedsEntry(t *testing.T) {
	calculator := NewCalculator(NewConversion())

	// Re-entries inflate the last step past the funnel entry point: rates
	// cap at 1.0 instead of failing the whole query.
	raw := []models.RawStepCounters{
		{StepID: "welcome", Position: 0, Entered: 10, Completed: 2},
		{StepID: "wait", Position: 1, Entered: 5, Completed: 1},
		{StepID: "offer", Position: 2, Entered: 20, Completed: 12},
	}

	result, err := calculator.Compute("wf-1", weekRange(t), raw)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.ConversionRate.Value(), 1e-9)
	assert.InDelta(t, 1.0, result.CompletionRate.Value(), 1e-9)
	assert.Equal(t, int64(10), result.TotalEnrollments)
	assert.Equal(t, int64(10), result.TotalCompletions)

	// The per-step counters keep the real, uncapped counts.
	require.Len(t, result.Steps, 3)
	assert.Equal(t, int64(20), result.Steps[2].EnteredCount)
	assert.Equal(t, int64(12), result.Steps[2].CompletedCount)
}

func TestCalculator_Compute_MidPipelineGrowth(t *testing.T) {
	calculator := NewCalculator(NewConversion())

	raw := []models.RawStepCounters{
		{StepID: "welcome", Position: 0, Entered: 10},
		{StepID: "wait", Position: 1, Entered: 20},
		{StepID: "offer", Position: 2, Entered: 5, Completed: 5},
	}

	result, err := calculator.Compute("wf-1", weekRange(t), raw)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, result.ConversionRate.Value(), 1e-9)
	assert.InDelta(t, 0.5, result.CompletionRate.Value(), 1e-9)
}

func TestCalculator_Compute_RejectsMalformedCounters(t *testing.T) {
	calculator := NewCalculator(NewConversion())

	_, err := calculator.Compute("wf-1", weekRange(t), []models.RawStepCounters{
		{StepID: "a", Position: 0, Entered: -5},
	})
	require.ErrorIs(t, err, models.ErrNegativeCount)

	_, err = calculator.Compute("wf-1", weekRange(t), []models.RawStepCounters{
		{StepID: "a", Position: 0, Entered: 10, Completed: 20},
	})
	require.ErrorIs(t, err, models.ErrCompletedExceedsEntered)
}
