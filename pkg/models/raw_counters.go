package models

import "time"

// RawStepCounters carries the unvalidated per-step event counts supplied by
// the persistence layer for one (workflow, time range) query. Validation
// happens in the metrics calculator, which is the only consumer.
type RawStepCounters struct {
	StepID          string
	Position        int
	Entered         int64
	Exited          int64
	Completed       int64
	AverageDuration time.Duration
	Exits           map[ExitReason]int64
}

// StepDefinition is a workflow step as defined in the workflow editor,
// identifying pipeline order independent of any recorded events.
type StepDefinition struct {
	StepID   string `json:"step_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}
