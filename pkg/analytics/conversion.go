// Package analytics provides the stateless computation services for workflow
// metrics: rate calculation, aggregate assembly, funnel analysis and trend
// bucketing. Every service is a pure function over its inputs.
package analytics

import (
	"fmt"

	"github.com/nurtura/nurtura/pkg/models"
)

// Conversion computes ratios from raw counts. It is the single sanctioned
// path for the zero-denominator business rule: "no data" yields a 0.0 rate,
// while the Rate constructors themselves keep rejecting it so invalid values
// cannot be built by accident elsewhere.
type Conversion struct{}

// NewConversion creates a new conversion calculation service.
func NewConversion() *Conversion {
	return &Conversion{}
}

// Rate computes numerator/denominator as a Rate. A zero denominator returns
// the defined zero rate; negative inputs are still rejected.
func (c *Conversion) Rate(numerator, denominator int64) (models.Rate, error) {
	if numerator < 0 || denominator < 0 {
		return models.Rate{}, fmt.Errorf("%w: %d/%d", models.ErrNegativeCount, numerator, denominator)
	}

	if denominator == 0 {
		return models.Rate{}, nil
	}

	return models.RateOf(numerator, denominator)
}
