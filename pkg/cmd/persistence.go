// Package cmd provides the constructors the binaries share, dispatching on
// connection URLs.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/backloghq/backlogd/pkg/persistence"
	"github.com/backloghq/backlogd/pkg/persistence/file"
	"github.com/backloghq/backlogd/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence implementation from the database URL
// scheme: postgres:// goes to PostgreSQL, anything else is treated as a
// file-store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic("failed to initialize postgres persistence: " + err.Error())
		}

		return p
	}

	return file.NewPersistence(databaseURL)
}
