package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/wsearch/pkg/db"
	"github.com/rubiojr/wsearch/pkg/storage"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return RunMigrations(ctx, cfg.DatabasePath, c.Bool("status"))
		},
	}
}

// RunMigrations creates the database if needed and applies pending
// migrations, or only reports them when statusOnly is set.
func RunMigrations(ctx context.Context, dbPath string, statusOnly bool) error {
	if statusOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			fmt.Printf("Database does not exist, will be created by 'wsearch migrate': %s\n", dbPath)
			return nil
		}
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(store)

	manager := store.MigrationManager()
	if statusOnly {
		if err := showMigrationStatus(ctx, manager); err != nil {
			return fmt.Errorf("showing migration status: %w", err)
		}
		fmt.Println("\nMigration status check completed")
		return nil
	}

	applied, err := manager.ApplyPendingMigrations(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	fmt.Printf("Applied %d migrations to %s\n", applied, dbPath)
	return nil
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(ctx context.Context, manager *db.MigrationManager) error {
	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Applied migrations: %d\n", len(status.Applied))
	for _, migration := range status.Applied {
		appliedTime := "unknown"
		if migration.AppliedAt != nil {
			appliedTime = migration.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  ✓ %03d: %s (applied: %s)\n", migration.Version, migration.Name, appliedTime)
	}

	fmt.Printf("Pending migrations: %d\n", len(status.Pending))
	for _, migration := range status.Pending {
		fmt.Printf("  • %03d: %s\n", migration.Version, migration.Name)
	}

	if len(status.Pending) == 0 {
		fmt.Println("  (none - database is up to date)")
	}

	return nil
}
