package analytics

import (
	"fmt"
	"time"

	"github.com/nurtura/nurtura/pkg/models"
)

// TrendPoint is one bucket of a trend series. Buckets with no snapshots are
// emitted with zero counts, so a series is always dense over its span.
type TrendPoint struct {
	Bucket         time.Time             `json:"bucket"` // Bucket start, UTC, aligned to the granularity
	Enrollments    int64                 `json:"enrollments"`
	Completions    int64                 `json:"completions"`
	ConversionRate models.ConversionRate `json:"conversion_rate"`
	CompletionRate models.CompletionRate `json:"completion_rate"`
	SnapshotCount  int                   `json:"snapshot_count"`
}

// Aggregator buckets metrics snapshots into trend series.
type Aggregator struct {
	conversion *Conversion
}

// NewAggregator creates a new analytics aggregation service.
func NewAggregator(conversion *Conversion) *Aggregator {
	return &Aggregator{conversion: conversion}
}

// Aggregate buckets snapshots by their computation time into non-overlapping
// windows aligned to the granularity boundary and returns the series in
// chronological order. Raw counters are summed per bucket and rates are
// recomputed from those sums; pre-computed snapshot rates are never averaged,
// since a mean of ratios does not equal the ratio of the sums. The result is
// independent of the input order.
func (a *Aggregator) Aggregate(snapshots []*models.MetricsSnapshot, granularity models.Granularity) ([]TrendPoint, error) {
	if _, err := models.ParseGranularity(string(granularity)); err != nil {
		return nil, err
	}

	if len(snapshots) == 0 {
		return []TrendPoint{}, nil
	}

	type bucketTotals struct {
		enrollments  int64
		completions  int64
		reachedFinal int64
		count        int
	}

	totals := make(map[time.Time]*bucketTotals)

	var first, last time.Time

	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}

		bucket := granularity.Truncate(snapshot.ComputedAt)

		entry, ok := totals[bucket]
		if !ok {
			entry = &bucketTotals{}
			totals[bucket] = entry
		}

		entry.enrollments += snapshot.TotalEnrollments
		entry.completions += snapshot.TotalCompletions
		entry.reachedFinal += snapshot.ReachedFinalStep
		entry.count++

		if first.IsZero() || bucket.Before(first) {
			first = bucket
		}

		if bucket.After(last) {
			last = bucket
		}
	}

	if first.IsZero() {
		return []TrendPoint{}, nil
	}

	series := make([]TrendPoint, 0, len(totals))

	for bucket := first; !bucket.After(last); bucket = granularity.Next(bucket) {
		point := TrendPoint{Bucket: bucket}

		if entry, ok := totals[bucket]; ok {
			conversionRate, err := a.conversion.Rate(entry.reachedFinal, entry.enrollments)
			if err != nil {
				return nil, fmt.Errorf("bucket %s: %w", bucket.Format(time.RFC3339), err)
			}

			completionRate, err := a.conversion.Rate(entry.completions, entry.enrollments)
			if err != nil {
				return nil, fmt.Errorf("bucket %s: %w", bucket.Format(time.RFC3339), err)
			}

			point.Enrollments = entry.enrollments
			point.Completions = entry.completions
			point.ConversionRate = conversionRate
			point.CompletionRate = completionRate
			point.SnapshotCount = entry.count
		}

		series = append(series, point)
	}

	return series, nil
}
