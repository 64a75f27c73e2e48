package analytics

import (
	"github.com/nurtura/nurtura/pkg/models"
)

// FunnelStep is one stage of a funnel breakdown.
type FunnelStep struct {
	StepID               string      `json:"step_id"`
	Position             int         `json:"position"`
	Entered              int64       `json:"entered"`
	Exited               int64       `json:"exited"`
	DropOff              int64       `json:"drop_off"`
	Conversion           models.Rate `json:"conversion"`            // Entered here relative to first step
	CumulativeConversion models.Rate `json:"cumulative_conversion"` // Running conversion up to and including this step
}

// FunnelAnalytics is the full drop-off breakdown for a workflow's pipeline.
type FunnelAnalytics struct {
	WorkflowID           string           `json:"workflow_id"`
	Range                models.TimeRange `json:"range"`
	Steps                []FunnelStep     `json:"steps"`
	CumulativeConversion models.Rate      `json:"cumulative_conversion"` // entered(last) / entered(first)
}

// Funnel computes drop-off breakdowns over ordered step metrics.
type Funnel struct {
	conversion *Conversion
}

// NewFunnel creates a new funnel analysis service.
func NewFunnel(conversion *Conversion) *Funnel {
	return &Funnel{conversion: conversion}
}

// Analyze walks the pipeline in order and computes per-step drop-off and
// conversion relative to the first step. The result is always a complete
// structure for the requested steps: an empty first step yields zero rates
// and zero drop-offs, and a later step with more entries than its
// predecessor reports a drop-off of zero rather than a negative count.
func (f *Funnel) Analyze(analytics *models.WorkflowAnalytics) (*FunnelAnalytics, error) {
	if analytics == nil {
		return nil, models.ErrNilAnalytics
	}

	result := &FunnelAnalytics{
		WorkflowID: analytics.WorkflowID,
		Range:      analytics.Range,
		Steps:      make([]FunnelStep, 0, len(analytics.Steps)),
	}

	if len(analytics.Steps) == 0 {
		return result, nil
	}

	firstEntered := analytics.Steps[0].EnteredCount

	for i, step := range analytics.Steps {
		var dropOff int64

		if i+1 < len(analytics.Steps) {
			dropOff = step.EnteredCount - analytics.Steps[i+1].EnteredCount
			if dropOff < 0 {
				dropOff = 0
			}
		}

		conversion, err := f.stepConversion(step.EnteredCount, firstEntered)
		if err != nil {
			return nil, err
		}

		result.Steps = append(result.Steps, FunnelStep{
			StepID:               step.StepID,
			Position:             step.Position,
			Entered:              step.EnteredCount,
			Exited:               step.ExitedCount,
			DropOff:              dropOff,
			Conversion:           conversion,
			CumulativeConversion: conversion,
		})
	}

	result.CumulativeConversion = result.Steps[len(result.Steps)-1].CumulativeConversion

	return result, nil
}

// stepConversion guards against funnels that grow mid-pipeline: a step with
// more entries than the baseline is capped at 1.0 instead of failing the
// whole breakdown.
func (f *Funnel) stepConversion(entered, baseline int64) (models.Rate, error) {
	if baseline > 0 && entered > baseline {
		entered = baseline
	}

	return f.conversion.Rate(entered, baseline)
}
