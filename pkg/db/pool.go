// Package db provides the Postgres-backed media catalog: connection pooling,
// versioned migrations, seeding and a catalog.Store over the media_items table.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// applicationName tags shell connections in pg_stat_activity.
const applicationName = "desktop-shell"

// NewPool creates a small pgx pool for the shell's catalog and pings it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to catalog database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	if config.ConnConfig.RuntimeParams["application_name"] == "" {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Catalog database ready", logPrefix))
	return pool, nil
}

const createSchemaMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// AppliedVersions returns the recorded migration versions, ascending.
func AppliedVersions(ctx context.Context, pool *pgxpool.Pool) ([]int, error) {
	if _, err := pool.Exec(ctx, createSchemaMigrations); err != nil {
		return nil, fmt.Errorf("%s - failed to create schema_migrations: %w", logPrefix, err)
	}
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read schema_migrations: %w", logPrefix, err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("%s - failed to scan schema_migrations: %w", logPrefix, err)
	}
	return versions, nil
}

// RunMigrations applies every migration not yet recorded in
// schema_migrations, each in its own transaction together with its record.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	applied, err := AppliedVersions(ctx, pool)
	if err != nil {
		return err
	}
	pending := Pending(migrations, applied)
	slog.Info(fmt.Sprintf("%s - %d of %d migrations pending", logPrefix, len(pending), len(migrations)))

	for _, m := range pending {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s - migration %s failed: %w", logPrefix, m.Name, err)
		}
		slog.Info(fmt.Sprintf("%s - Applied %s", logPrefix, m.Name))
	}
	return nil
}

// MigrationReport describes the catalog schema state.
type MigrationReport struct {
	CatalogPresent bool
	Applied        []int
	Pending        []Migration
}

// MigrationStatus compares the migrations in migrationPath with those recorded
// in the database, and reports whether the media_items table exists.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) (*MigrationReport, error) {
	const statusLogPrefix = "db:MigrationStatus"

	migrations, err := LoadMigrations(migrationPath)
	if err != nil {
		return nil, fmt.Errorf("%s - load migrations: %w", statusLogPrefix, err)
	}
	applied, err := AppliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{Applied: applied, Pending: Pending(migrations, applied)}
	err = pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'media_items')`).Scan(&report.CatalogPresent)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to check media_items: %w", statusLogPrefix, err)
	}
	return report, nil
}
