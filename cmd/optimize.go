package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/wsearch/pkg/storage"
)

// OptimizeCommand creates the optimize command
func OptimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Database optimization and maintenance commands",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run integrity checks on the database",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "quick",
						Usage: "Skip the full-text index checks",
						Value: false,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						fmt.Print("Checking database... ")
						if err := store.CheckIntegrity(ctx, !c.Bool("quick")); err != nil {
							fmt.Printf("✗ FAILED - %v\n", err)
							fmt.Println("To fix full-text index corruption, run: wsearch optimize fts-rebuild")
							return fmt.Errorf("integrity check failed")
						}
						fmt.Println("✓ OK")
						return nil
					})
				},
			},
			{
				Name:  "fts-rebuild",
				Usage: "Rebuild the full-text indexes",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						fmt.Print("Rebuilding full-text indexes... ")
						if err := store.RebuildIndex(ctx); err != nil {
							fmt.Printf("✗ FAILED - %v\n", err)
							return err
						}
						fmt.Println("✓ OK")
						return nil
					})
				},
			},
			{
				Name:  "all",
				Usage: "Merge full-text index segments and update query planner statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStore(ctx, c, func(store *storage.Store) error {
						fmt.Print("Optimizing database... ")
						if err := store.Optimize(ctx); err != nil {
							fmt.Printf("✗ FAILED - %v\n", err)
							return err
						}
						fmt.Println("✓ OK")
						return nil
					})
				},
			},
		},
	}
}

func withStore(ctx context.Context, c *cli.Command, fn func(*storage.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)
	return fn(store)
}
