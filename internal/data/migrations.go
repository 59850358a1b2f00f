package data

import (
	"context"
	"database/sql"

	"github.com/gelatohub/painel/internal/migrate"
)

// RunMigrations creates the gateway-owned schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
