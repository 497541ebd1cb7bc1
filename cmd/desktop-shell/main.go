// Package main is the entrypoint for the desktop shell.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/morezero/desktop-shell/internal/config"
	"github.com/morezero/desktop-shell/internal/shell"
	"github.com/morezero/desktop-shell/pkg/catalog"
	"github.com/morezero/desktop-shell/pkg/db"
)

const usage = `Usage: desktop-shell [command]
       desktop-shell run                 Open the shell window (default).
       desktop-shell migrate up          Run database migrations.
       desktop-shell migrate status      Show migration status.
       desktop-shell seed [file]         Seed the media catalog from a catalog file (default: CATALOG_FILE or built-in).
       desktop-shell clear               Truncate the catalog tables; schema is preserved.
       desktop-shell ensure-db [name]    Create database if missing (default: name in DATABASE_URL).

Environment: SHELL_ENGINE (memory|webview), SHELL_BRIDGE_MODE (inline|serialized),
SHELL_INITIAL_URL, SHELL_WIDTH, SHELL_HEIGHT, SHELL_DATA_DIR, CATALOG_FILE,
DATABASE_URL (optional for run, required for database commands), MIGRATION_PATH,
COMMS_URL (optional), HTTP_PORT or SHELL_HTTP_ADDR (optional), LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("desktop-shell migrate: require subcommand (up, status)")
		}
		switch sub := args[1]; sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("desktop-shell migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("desktop-shell migrate status: %v", err)
			}
		default:
			log.Fatalf("desktop-shell migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("desktop-shell clear: %v", err)
		}
		return
	case "seed":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		if err := runSeed(file); err != nil {
			log.Fatalf("desktop-shell seed: %v", err)
		}
		return
	case "ensure-db":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		if err := runEnsureDB(name); err != nil {
			log.Fatalf("desktop-shell ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		fmt.Printf("\nEngines in this build: %s\n", strings.Join(shell.Platforms(), ", "))
		return
	case "run", "":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := shell.Run(); err != nil {
		log.Fatalf("desktop-shell: %v", err)
	}
}

// loadDBConfig loads config for database commands and installs logging.
func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	shell.SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrateUp() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	report, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	fmt.Printf("Applied migrations: %v (media_items present: %v)\n", report.Applied, report.CatalogPresent)
	if len(report.Pending) == 0 {
		fmt.Println("Migration status: up to date")
		return nil
	}
	fmt.Printf("Migration status: %d pending (run 'desktop-shell migrate up'):\n", len(report.Pending))
	for _, m := range report.Pending {
		fmt.Printf("  %s\n", m.Name)
	}
	return nil
}

func runClear() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearCatalog(ctx, pool); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	return nil
}

func runSeed(file string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.CatalogFile
	}
	cf, err := catalog.LoadCatalogFile(file)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.SeedCatalog(ctx, pool, cf); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	fmt.Printf("Seeded %d items and %d add-ons.\n", len(cf.Items), len(cf.Addons))
	return nil
}

func runEnsureDB(name string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL := cfg.DatabaseURL
	if name != "" {
		if targetURL, err = db.WithDatabaseName(cfg.DatabaseURL, name); err != nil {
			return err
		}
	}
	dbName, err := db.DatabaseName(targetURL)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}
