package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/desktop-shell/pkg/catalog"
)

const seedLogPrefix = "db:seed"

// SeedCatalog writes the items and add-ons of cf in one transaction.
// Idempotent: existing rows are updated in place.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, cf *catalog.CatalogFile) error {
	if cf == nil || (len(cf.Items) == 0 && len(cf.Addons) == 0) {
		slog.Info(fmt.Sprintf("%s - nothing to seed", seedLogPrefix))
		return nil
	}
	slog.Info(fmt.Sprintf("%s - seeding %q (%d items, %d addons)", seedLogPrefix, cf.Name, len(cf.Items), len(cf.Addons)))

	for _, it := range cf.Items {
		if it.ID == "" || it.Title == "" {
			return fmt.Errorf("%s - item %q has no id or title", seedLogPrefix, it.ID)
		}
	}
	for _, m := range cf.Addons {
		if m.ID == "" {
			return fmt.Errorf("%s - add-on without id", seedLogPrefix)
		}
	}

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := upsertItems(ctx, tx, cf.Items); err != nil {
			return err
		}
		return upsertAddons(ctx, tx, cf.Addons)
	})
	if err != nil {
		return fmt.Errorf("%s - seed failed: %w", seedLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - seed complete", seedLogPrefix))
	return nil
}
