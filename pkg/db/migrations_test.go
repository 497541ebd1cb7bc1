package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func shippedMigrationPath() string {
	return ResolveMigrationPath("migrations", filepath.Join("..", "..", "migrations"))
}

func writeMigrationDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("%s - write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	return dir
}

func TestLoadMigrations_ShippedCatalogSchema(t *testing.T) {
	migrations, err := LoadMigrations(shippedMigrationPath())
	if err != nil {
		t.Fatalf("%s - shipped migrations failed to load: %v", migrationsTestPrefix, err)
	}
	if len(migrations) == 0 {
		t.Fatalf("%s - expected at least one shipped migration", migrationsTestPrefix)
	}

	first := migrations[0]
	if first.Version != 1 || first.Name != "001_media_catalog.sql" {
		t.Errorf("%s - first migration = %d %s", migrationsTestPrefix, first.Version, first.Name)
	}
	for _, table := range []string{"media_items", "addon_manifests"} {
		if !strings.Contains(first.SQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("%s - %s does not create %s", migrationsTestPrefix, first.Name, table)
		}
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("%s - migrations out of order at %s", migrationsTestPrefix, migrations[i].Name)
		}
	}
}

func TestLoadMigrations_OrdersByVersionNotName(t *testing.T) {
	dir := writeMigrationDir(t, map[string]string{
		"10_poster_cache.sql":   "ALTER TABLE media_items ADD COLUMN poster_etag TEXT;",
		"2_addon_ratings.sql":   "ALTER TABLE addon_manifests ADD COLUMN rating INTEGER;",
		"001_media_catalog.sql": "CREATE TABLE IF NOT EXISTS media_items (id TEXT PRIMARY KEY);",
		"README.md":             "# catalog schema",
	})
	if err := os.Mkdir(filepath.Join(dir, "003_archive.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	migrations, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}

	var got []int
	for _, m := range migrations {
		got = append(got, m.Version)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 10 {
		t.Errorf("%s - versions = %v, want [1 2 10]", migrationsTestPrefix, got)
	}
	if !strings.Contains(migrations[2].SQL, "poster_etag") {
		t.Errorf("%s - version 10 has wrong body %q", migrationsTestPrefix, migrations[2].SQL)
	}
}

func TestLoadMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name:  "missing version prefix",
			files: map[string]string{"media_catalog.sql": "SELECT 1;"},
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_media_catalog.sql": "SELECT 1;",
				"1_addon_manifests.sql": "SELECT 2;",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadMigrations(writeMigrationDir(t, tt.files)); err == nil {
				t.Errorf("%s - expected error", migrationsTestPrefix)
			}
		})
	}

	if _, err := LoadMigrations(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("%s - expected error for missing directory", migrationsTestPrefix)
	}
}

func TestPending(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "001_media_catalog.sql"},
		{Version: 2, Name: "002_addon_ratings.sql"},
		{Version: 3, Name: "003_poster_cache.sql"},
	}

	tests := []struct {
		name    string
		applied []int
		want    []string
	}{
		{"fresh database", nil, []string{"001_media_catalog.sql", "002_addon_ratings.sql", "003_poster_cache.sql"}},
		{"catalog applied", []int{1}, []string{"002_addon_ratings.sql", "003_poster_cache.sql"}},
		{"gap is still pending", []int{1, 3}, []string{"002_addon_ratings.sql"}},
		{"up to date", []int{1, 2, 3}, nil},
		{"unknown applied version ignored", []int{1, 2, 3, 99}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pending(all, tt.applied)
			if len(got) != len(tt.want) {
				t.Fatalf("%s - Pending = %v, want %v", migrationsTestPrefix, got, tt.want)
			}
			for i := range got {
				if got[i].Name != tt.want[i] {
					t.Errorf("%s - pending[%d] = %s, want %s", migrationsTestPrefix, i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestResolveMigrationPath(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")

	if got := ResolveMigrationPath(missing, filepath.Join(dir, "nope"), dir); got != dir {
		t.Errorf("%s - ResolveMigrationPath = %q, want first existing fallback %q", migrationsTestPrefix, got, dir)
	}
	if got := ResolveMigrationPath(dir, missing); got != dir {
		t.Errorf("%s - ResolveMigrationPath = %q, want %q", migrationsTestPrefix, got, dir)
	}
	if got := ResolveMigrationPath(missing); got != missing {
		t.Errorf("%s - ResolveMigrationPath = %q, want original path when nothing exists", migrationsTestPrefix, got)
	}
}
