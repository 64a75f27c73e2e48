// Package log configures structured logging for all nurtura services.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide slog handler at the requested level.
// Analytics services log JSON lines; an unknown level falls back to info
// rather than failing startup.
func Setup(logLevel string) {
	var level slog.Level

	err := level.UnmarshalText([]byte(logLevel))
	if err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})).With("service", "nurtura-analytics"))
}

// WithModule returns a logger tagged with the emitting module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
