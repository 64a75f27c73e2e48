package analytics

import (
	"fmt"
	"sort"

	"github.com/nurtura/nurtura/pkg/models"
)

// Calculator turns raw per-step counters into a validated WorkflowAnalytics
// aggregate. It has no side effects and holds no state between calls.
type Calculator struct {
	conversion *Conversion
}

// NewCalculator creates a new metrics calculation service.
func NewCalculator(conversion *Conversion) *Calculator {
	return &Calculator{conversion: conversion}
}

// Compute validates the raw counters and assembles the aggregate for one
// workflow over one range. Counters may arrive in any order; pipeline
// position decides ordering. Zero counters everywhere is a valid business
// state and produces an aggregate full of zero rates, never an error.
func (c *Calculator) Compute(workflowID string, tr models.TimeRange, raw []models.RawStepCounters) (*models.WorkflowAnalytics, error) {
	ordered := make([]models.RawStepCounters, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	steps := make([]*models.StepMetrics, 0, len(ordered))

	for _, counters := range ordered {
		step, err := models.NewStepMetrics(
			counters.StepID,
			counters.Position,
			counters.Entered,
			counters.Exited,
			counters.Completed,
			counters.AverageDuration,
			counters.Exits,
		)
		if err != nil {
			return nil, fmt.Errorf("invalid counters for workflow %s: %w", workflowID, err)
		}

		steps = append(steps, step)
	}

	var enrollments, completions, reachedLast int64

	if len(steps) > 0 {
		enrollments = steps[0].EnteredCount
		last := steps[len(steps)-1]
		completions = last.CompletedCount
		reachedLast = last.EnteredCount
	}

	// Re-entries can push the last step past the funnel entry point. The
	// aggregate caps at full conversion, matching the per-step funnel cap;
	// the raw step counters keep the uncapped counts.
	if reachedLast > enrollments {
		reachedLast = enrollments
	}

	if completions > enrollments {
		completions = enrollments
	}

	conversionRate, err := c.conversion.Rate(reachedLast, enrollments)
	if err != nil {
		return nil, fmt.Errorf("conversion rate for workflow %s: %w", workflowID, err)
	}

	completionRate, err := c.conversion.Rate(completions, enrollments)
	if err != nil {
		return nil, fmt.Errorf("completion rate for workflow %s: %w", workflowID, err)
	}

	return models.NewWorkflowAnalytics(workflowID, tr, steps, enrollments, completions, conversionRate, completionRate)
}
