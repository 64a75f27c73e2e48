package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug", level: "debug", debugEnabled: true},
		{name: "warn", level: "warn", debugEnabled: false},
		{name: "unknown falls back to info", level: "verbose", debugEnabled: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Setup(tt.level)

			assert.Equal(t, tt.debugEnabled, slog.Default().Enabled(t.Context(), slog.LevelDebug))
			assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelError))
		})
	}
}
