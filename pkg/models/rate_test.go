package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRate(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		want    float64
		wantErr error
	}{
		{name: "zero", value: 0.0, want: 0.0},
		{name: "one", value: 1.0, want: 1.0},
		{name: "rounded to four places", value: 0.123456, want: 0.1235},
		{name: "negative rejected", value: -0.1, wantErr: ErrRateOutOfRange},
		{name: "above one rejected", value: 1.01, wantErr: ErrRateOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := NewRate(tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, rate.Value(), 1e-9)
		})
	}
}

func TestRateOf(t *testing.T) {
	rate, err := RateOf(1, 3)
	require.NoError(t, err)
	assert.InDelta(t, 0.3333, rate.Value(), 1e-9)

	_, err = RateOf(1, 0)
	require.ErrorIs(t, err, ErrZeroDenominator)

	_, err = RateOf(-1, 10)
	require.ErrorIs(t, err, ErrNegativeCount)

	_, err = RateOf(11, 10)
	require.ErrorIs(t, err, ErrRateOutOfRange)
}

func TestRate_Percent(t *testing.T) {
	rate, err := RateOf(1, 8)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, rate.Percent(), 1e-9)
}

func TestRate_JSONRoundTrip(t *testing.T) {
	original, err := RateOf(7, 9)
	require.NoError(t, err)

	payload, err := json.Marshal(original)
	require.NoError(t, err)

	var restored Rate

	require.NoError(t, json.Unmarshal(payload, &restored))
	assert.Equal(t, original.Value(), restored.Value())
}

func TestRate_UnmarshalRejectsInvalid(t *testing.T) {
	var rate Rate

	err := json.Unmarshal([]byte("1.5"), &rate)
	require.ErrorIs(t, err, ErrRateOutOfRange)
}
