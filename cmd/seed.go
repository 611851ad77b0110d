package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// SeedCommand creates the seed command
func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create a demo workspace to search",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			res, err := store.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seeding database: %w", err)
			}
			fmt.Printf("Created workspace %q (id %d) with %d databases and %d rows\n",
				res.Workspace.Name, res.Workspace.ID, len(res.Databases), res.Rows)
			fmt.Printf("Search it with: wsearch search --workspace %d --user %s --query <text>\n",
				res.Workspace.ID, res.User.Email)
			return nil
		},
	}
}
