package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/desktop-shell/pkg/catalog"
)

const repoLogPrefix = "db:repository"

// Repository is a catalog.Store backed by the media_items and
// addon_manifests tables.
type Repository struct {
	pool *pgxpool.Pool
}

var _ catalog.Store = (*Repository)(nil)

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// =========================================================================
// MEDIA ITEMS
// =========================================================================

const selectItems = `SELECT id, title, year, poster FROM media_items`

// List returns every media item in catalog order.
func (r *Repository) List(ctx context.Context) ([]catalog.MediaItem, error) {
	rows, err := r.pool.Query(ctx, selectItems+` ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("%s - List query failed: %w", repoLogPrefix, err)
	}
	return scanItems(rows)
}

// Get returns the item with the given id, or catalog.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*catalog.MediaItem, error) {
	slog.Debug(fmt.Sprintf("%s - Get id=%s", repoLogPrefix, id))

	var it catalog.MediaItem
	err := r.pool.QueryRow(ctx, selectItems+` WHERE id = $1`, id).
		Scan(&it.ID, &it.Title, &it.Year, &it.Poster)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s - Get scan failed: %w", repoLogPrefix, err)
	}
	return &it, nil
}

// Search returns items whose title contains query, ignoring case. An empty
// query returns the whole catalog.
func (r *Repository) Search(ctx context.Context, query string) ([]catalog.MediaItem, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return r.List(ctx)
	}
	rows, err := r.pool.Query(ctx,
		selectItems+` WHERE STRPOS(LOWER(title), LOWER($1)) > 0 ORDER BY position, id`, q)
	if err != nil {
		return nil, fmt.Errorf("%s - Search query failed: %w", repoLogPrefix, err)
	}
	return scanItems(rows)
}

// UpsertItems inserts or updates items, keeping the given order.
func (r *Repository) UpsertItems(ctx context.Context, items []catalog.MediaItem) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return upsertItems(ctx, tx, items)
	})
}

func upsertItems(ctx context.Context, tx pgx.Tx, items []catalog.MediaItem) error {
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(
			`INSERT INTO media_items (id, title, year, poster, position)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
			   title = EXCLUDED.title,
			   year = EXCLUDED.year,
			   poster = EXCLUDED.poster,
			   position = EXCLUDED.position,
			   modified = NOW()`,
			it.ID, it.Title, it.Year, it.Poster, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s - upsert media items failed: %w", repoLogPrefix, err)
	}
	return nil
}

// CountItems returns the number of media items.
func (r *Repository) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM media_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s - CountItems failed: %w", repoLogPrefix, err)
	}
	return n, nil
}

// =========================================================================
// ADD-ON MANIFESTS
// =========================================================================

// ListAddons returns the published add-on manifests in catalog order.
func (r *Repository) ListAddons(ctx context.Context) ([]catalog.AddonManifest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, versions FROM addon_manifests ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListAddons query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	out := []catalog.AddonManifest{}
	for rows.Next() {
		var m catalog.AddonManifest
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Versions); err != nil {
			return nil, fmt.Errorf("%s - ListAddons scan failed: %w", repoLogPrefix, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - ListAddons rows failed: %w", repoLogPrefix, err)
	}
	return out, nil
}

func upsertAddons(ctx context.Context, tx pgx.Tx, addons []catalog.AddonManifest) error {
	batch := &pgx.Batch{}
	for i, m := range addons {
		versions := m.Versions
		if versions == nil {
			versions = []string{}
		}
		batch.Queue(
			`INSERT INTO addon_manifests (id, name, description, versions, position)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   description = EXCLUDED.description,
			   versions = EXCLUDED.versions,
			   position = EXCLUDED.position,
			   modified = NOW()`,
			m.ID, m.Name, m.Description, versions, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s - upsert add-on manifests failed: %w", repoLogPrefix, err)
	}
	return nil
}

// =========================================================================
// SCAN HELPERS
// =========================================================================

func scanItems(rows pgx.Rows) ([]catalog.MediaItem, error) {
	defer rows.Close()
	out := []catalog.MediaItem{}
	for rows.Next() {
		var it catalog.MediaItem
		if err := rows.Scan(&it.ID, &it.Title, &it.Year, &it.Poster); err != nil {
			return nil, fmt.Errorf("%s - scan media item failed: %w", repoLogPrefix, err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - media item rows failed: %w", repoLogPrefix, err)
	}
	return out, nil
}
