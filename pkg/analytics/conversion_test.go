package analytics

import (
	"testing"

	"github.com/nurtura/nurtura/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversion_Rate(t *testing.T) {
	conversion := NewConversion()

	tests := []struct {
		name        string
		numerator   int64
		denominator int64
		want        float64
	}{
		{name: "simple ratio", numerator: 1, denominator: 4, want: 0.25},
		{name: "full conversion", numerator: 10, denominator: 10, want: 1.0},
		{name: "rounded to four places", numerator: 2, denominator: 3, want: 0.6667},
		{name: "zero numerator", numerator: 0, denominator: 50, want: 0.0},
		{name: "zero over zero is zero, not an error", numerator: 0, denominator: 0, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := conversion.Rate(tt.numerator, tt.denominator)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, rate.Value(), 1e-9)
		})
	}
}

func TestConversion_Rate_RejectsNegatives(t *testing.T) {
	conversion := NewConversion()

	_, err := conversion.Rate(-1, 10)
	require.ErrorIs(t, err, models.ErrNegativeCount)

	_, err = conversion.Rate(1, -10)
	require.ErrorIs(t, err, models.ErrNegativeCount)
}

func TestConversion_Rate_MatchesExactDivision(t *testing.T) {
	conversion := NewConversion()

	// Property: for d > 0 and 0 <= n <= d, rate equals n/d within the fixed
	// rounding precision.
	for d := int64(1); d <= 20; d++ {
		for n := int64(0); n <= d; n++ {
			rate, err := conversion.Rate(n, d)
			require.NoError(t, err)
			assert.InDelta(t, float64(n)/float64(d), rate.Value(), 0.00005)
		}
	}
}
