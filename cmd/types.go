package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/searchtypes"
)

// TypesCommand creates the types command
func TypesCommand() *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "List the searchable types in result order",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			all := searchtypes.All(search.Deps{})
			slices.SortStableFunc(all, func(a, b search.SearchableItemType) int {
				return a.Priority() - b.Priority()
			})

			fmt.Printf("%-16s %-12s %s\n", "TYPE", "NAME", "PRIORITY")
			for _, t := range all {
				line := fmt.Sprintf("%-16s %-12s %d", t.Type(), t.Name(), t.Priority())
				if cfg.Search.TypeDisabled(t.Type()) {
					line += " (disabled)"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
