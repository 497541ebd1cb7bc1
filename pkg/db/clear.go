package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearCatalog truncates the catalog tables. Schema is preserved; only data is removed.
func ClearCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing catalog tables", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE media_items, addon_manifests`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Catalog cleared", clearLogPrefix))
	return nil
}
