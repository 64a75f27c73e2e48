package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeRange indicates a range whose start is after its end.
var ErrInvalidTimeRange = errors.New("time range start must not be after end")

// TimeRange is an inclusive [Start, End] pair of timestamps bounding an
// aggregation window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange validates that start <= end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, fmt.Errorf("%w: %s > %s", ErrInvalidTimeRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return TimeRange{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the range, bounds included.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// Overlaps reports whether the two ranges share at least one instant.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return !tr.Start.After(other.End) && !other.Start.After(tr.End)
}

// Duration returns the length of the range.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// RangePreset names a commonly requested reporting window.
type RangePreset string

const (
	RangePresetToday      RangePreset = "today"
	RangePresetLast7Days  RangePreset = "last_7_days"
	RangePresetLast30Days RangePreset = "last_30_days"
	RangePresetLast90Days RangePreset = "last_90_days"
)

// ErrInvalidRangePreset indicates an unknown preset name.
var ErrInvalidRangePreset = errors.New("invalid time range preset")

// Resolve materializes the preset into a concrete range ending at now.
// Presets are anchored in UTC so the same request is reproducible across
// server timezones.
func (p RangePreset) Resolve(now time.Time) (TimeRange, error) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch p {
	case RangePresetToday:
		return TimeRange{Start: midnight, End: now}, nil
	case RangePresetLast7Days:
		return TimeRange{Start: now.AddDate(0, 0, -7), End: now}, nil
	case RangePresetLast30Days:
		return TimeRange{Start: now.AddDate(0, 0, -30), End: now}, nil
	case RangePresetLast90Days:
		return TimeRange{Start: now.AddDate(0, 0, -90), End: now}, nil
	default:
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidRangePreset, string(p))
	}
}
