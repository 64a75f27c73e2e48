// Package cmd provides shared wiring helpers for the nurtura binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nurtura/nurtura/pkg/persistence"
	"github.com/nurtura/nurtura/pkg/persistence/file"
	"github.com/nurtura/nurtura/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence backend from the database URL
// scheme: postgres for postgres:// and postgresql://, the file store for
// everything else.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
