package models

import (
	"errors"
	"fmt"
	"time"
)

// Granularity is the bucket size used for trend aggregation.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

// ErrInvalidGranularity indicates a bucket size outside the closed set.
var ErrInvalidGranularity = errors.New("invalid granularity")

// ParseGranularity validates a raw tag against the closed set.
func ParseGranularity(raw string) (Granularity, error) {
	switch granularity := Granularity(raw); granularity {
	case GranularityHourly, GranularityDaily, GranularityWeekly:
		return granularity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, raw)
	}
}

// Truncate aligns t to the start of its bucket. Buckets are anchored in UTC;
// daily buckets start at midnight and weekly buckets start Monday 00:00.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()

	switch g {
	case GranularityHourly:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case GranularityDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case GranularityWeekly:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(midnight.Weekday()) + 6) % 7 // Monday-based week

		return midnight.AddDate(0, 0, -offset)
	default:
		return t
	}
}

// Next advances a bucket start to the start of the following bucket.
func (g Granularity) Next(bucket time.Time) time.Time {
	switch g {
	case GranularityHourly:
		return bucket.Add(time.Hour)
	case GranularityDaily:
		return bucket.AddDate(0, 0, 1)
	case GranularityWeekly:
		return bucket.AddDate(0, 0, 7)
	default:
		return bucket
	}
}
