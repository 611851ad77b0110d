package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/wsearch/pkg/config"
	"github.com/rubiojr/wsearch/pkg/log"
	"github.com/rubiojr/wsearch/pkg/perm"
	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/searchtypes"
	"github.com/rubiojr/wsearch/pkg/storage"
)

// loadConfig loads the configuration named by the --config flag and applies
// its logging settings. --debug overrides the configured debug level.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyLogConfig(cfg, c.Bool("debug"))
	return cfg, nil
}

func applyLogConfig(cfg *config.Config, debug bool) {
	log.SetGlobalDebug(debug || cfg.Log.Debug)
	for _, name := range cfg.Log.DebugServices {
		log.EnableDebugFor(name)
	}
}

// openStore opens the configured database and refuses to continue when
// migrations are pending.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database %s does not exist. Run 'wsearch migrate' first", cfg.DatabasePath)
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	pending, err := store.MigrationManager().GetPendingMigrations(ctx)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("checking pending migrations: %w", err)
	}
	if len(pending) > 0 {
		closeStore(store)
		return nil, fmt.Errorf("database %s has %d pending migrations. Run 'wsearch migrate' first", cfg.DatabasePath, len(pending))
	}
	return store, nil
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}

// newSearchHandler builds the registry of built-in types and a handler
// configured from cfg.
func newSearchHandler(store *storage.Store, cfg *config.Config) (*search.Handler, error) {
	membership := perm.NewMembership(store.DB())
	registry, err := searchtypes.NewRegistry(
		search.Deps{DB: store.DB(), Permissions: membership},
		cfg.Search.DisabledTypes...,
	)
	if err != nil {
		return nil, err
	}

	executor, err := search.NewExecutor(cfg.Search.Strategy)
	if err != nil {
		return nil, err
	}

	return search.NewHandler(store.DB(), registry,
		search.WithExecutor(executor),
		search.WithValidation(cfg.Search.ShouldValidate()),
		search.WithTimeout(cfg.Search.Timeout.Duration),
		search.WithPermissions(membership),
	), nil
}
