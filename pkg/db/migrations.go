package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

const migrationsLogPrefix = "db:migrations"

// Migration is one versioned schema file, named NNN_description.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrationNameRegex = regexp.MustCompile(`^(\d+)_[A-Za-z0-9_-]+\.sql$`)

// LoadMigrations reads the versioned .sql files of dir, ordered by version.
// Other files are ignored. A .sql file without a version prefix, or two
// files sharing a version, is an error.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	seen := make(map[int]string)
	out := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		m := migrationNameRegex.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("%s - migration %s has no version prefix", migrationsLogPrefix, e.Name())
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%s - migration %s: %w", migrationsLogPrefix, e.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("%s - migrations %s and %s share version %d", migrationsLogPrefix, prev, e.Name(), version)
		}
		seen[version] = e.Name()

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, path, err)
		}
		out = append(out, Migration{Version: version, Name: e.Name(), SQL: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	slog.Debug(fmt.Sprintf("%s - Loaded %d migrations from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

// Pending returns the migrations whose versions are not in applied.
func Pending(all []Migration, applied []int) []Migration {
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	var out []Migration
	for _, m := range all {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// ResolveMigrationPath returns path if it exists, otherwise the first of the
// fallbacks that does. Tests run from package directories use the fallbacks.
func ResolveMigrationPath(path string, fallbacks ...string) string {
	for _, p := range append([]string{path}, fallbacks...) {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return path
}
