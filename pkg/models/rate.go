// Package models defines the core domain models for workflow analytics.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// RatePrecision is the number of decimal places every rate is rounded to.
// Rounding happens once, at construction, so rates compare exactly across
// aggregation steps.
const RatePrecision = 4

var (
	// ErrRateOutOfRange indicates a rate outside the [0.0, 1.0] fraction range.
	ErrRateOutOfRange = errors.New("rate must be a fraction between 0.0 and 1.0")

	// ErrNegativeCount indicates a negative numerator or denominator.
	ErrNegativeCount = errors.New("counts cannot be negative")

	// ErrZeroDenominator indicates a ratio constructed with denominator zero.
	ErrZeroDenominator = errors.New("denominator cannot be zero")
)

// Rate is an immutable fraction in [0.0, 1.0], rounded to RatePrecision
// decimal places. The zero value is a valid 0.0 rate.
type Rate struct {
	value float64
}

// ConversionRate is the fraction of participants reaching an outcome
// relative to a baseline.
type ConversionRate = Rate

// CompletionRate is the fraction of enrolled participants that finished.
type CompletionRate = Rate

// NewRate validates and rounds a raw fraction.
func NewRate(value float64) (Rate, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Rate{}, fmt.Errorf("%w: got %v", ErrRateOutOfRange, value)
	}

	if value < 0.0 || value > 1.0 {
		return Rate{}, fmt.Errorf("%w: got %v", ErrRateOutOfRange, value)
	}

	return Rate{value: roundRate(value)}, nil
}

// RateOf builds a rate from raw counts. The denominator must be positive;
// callers that need the 0/0 business rule go through the conversion service
// instead, so invalid construction stays impossible here.
func RateOf(numerator, denominator int64) (Rate, error) {
	if numerator < 0 || denominator < 0 {
		return Rate{}, fmt.Errorf("%w: %d/%d", ErrNegativeCount, numerator, denominator)
	}

	if denominator == 0 {
		return Rate{}, ErrZeroDenominator
	}

	if numerator > denominator {
		return Rate{}, fmt.Errorf("%w: %d/%d exceeds 1.0", ErrRateOutOfRange, numerator, denominator)
	}

	return Rate{value: roundRate(float64(numerator) / float64(denominator))}, nil
}

// Value returns the fraction in [0.0, 1.0].
func (r Rate) Value() float64 {
	return r.value
}

// Percent converts to [0, 100] for presentation. Internal math always uses
// the fraction form.
func (r Rate) Percent() float64 {
	return roundRate(r.value * 100)
}

// IsZero reports whether the rate is exactly 0.0.
func (r Rate) IsZero() bool {
	return r.value == 0.0
}

func (r Rate) String() string {
	return fmt.Sprintf("%.*f", RatePrecision, r.value)
}

// MarshalJSON encodes the rate as its bare fraction.
func (r Rate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.value)
}

// UnmarshalJSON decodes and re-validates a bare fraction, so a rate can
// round-trip through an export without losing its invariant.
func (r *Rate) UnmarshalJSON(data []byte) error {
	var value float64

	err := json.Unmarshal(data, &value)
	if err != nil {
		return err
	}

	rate, err := NewRate(value)
	if err != nil {
		return err
	}

	*r = rate

	return nil
}

func roundRate(value float64) float64 {
	shift := math.Pow(10, RatePrecision)

	return math.Round(value*shift) / shift
}
