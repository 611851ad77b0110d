package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/wsearch/pkg/api"
	"github.com/rubiojr/wsearch/pkg/config"
	"github.com/rubiojr/wsearch/pkg/log"
	"github.com/rubiojr/wsearch/pkg/storage"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Address to listen on (defaults to server.address)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if addr := c.String("address"); addr != "" {
				cfg.Server.Address = addr
			}
			return serve(ctx, c.String("config"), cfg, c.Bool("debug"))
		},
	}
}

// swappableHandler serves through the most recently built API handler.
type swappableHandler struct {
	current atomic.Pointer[http.Handler]
}

func (s *swappableHandler) set(h http.Handler) {
	s.current.Store(&h)
}

func (s *swappableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

func newAPIHandler(store *storage.Store, cfg *config.Config) (http.Handler, error) {
	handler, err := newSearchHandler(store, cfg)
	if err != nil {
		return nil, err
	}
	users := api.HeaderUserResolver{Header: cfg.Server.UserHeader, Users: store}
	limits := api.Limits{
		DefaultLimit:   cfg.Search.DefaultLimit,
		MaxLimit:       cfg.Search.MaxLimit,
		MaxQueryLength: cfg.Search.MaxQueryLength,
	}
	return api.NewServer(handler, users, store, limits).Handler(), nil
}

// serve runs the API until interrupted. SIGHUP or a change to the config
// file rebuilds the search handler from the new configuration.
func serve(ctx context.Context, configPath string, cfg *config.Config, debug bool) error {
	logger := log.ForService("serve")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	var handler swappableHandler
	h, err := newAPIHandler(store, cfg)
	if err != nil {
		return err
	}
	handler.set(h)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      &handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting search API on http://%s", cfg.Server.Address)
		logger.Infof("  GET /api/search/workspace/{workspace_id}/?query=...&limit=...&offset=...")
		logger.Infof("  GET /api/search/types")
		logger.Infof("  GET /health")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	optimizeCtx, stopOptimize := context.WithCancel(ctx)
	defer stopOptimize()
	if interval := cfg.Server.OptimizeInterval.Duration; interval > 0 {
		go optimizePeriodically(optimizeCtx, store, interval)
	}

	reload := func() {
		newCfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Errorf("Failed to reload configuration: %v", err)
			return
		}
		if newCfg.DatabasePath != cfg.DatabasePath || newCfg.Server.Address != cfg.Server.Address {
			logger.Warnf("database_path and server.address changes need a restart")
		}
		applyLogConfig(newCfg, debug)
		h, err := newAPIHandler(store, newCfg)
		if err != nil {
			logger.Errorf("Failed to rebuild search handler: %v", err)
			return
		}
		handler.set(h)
		logger.Infof("Configuration reloaded (strategy=%s, disabled types=%v)", newCfg.Search.Strategy, newCfg.Search.DisabledTypes)
	}

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("Watching config file for changes: %s", configPath)
			events, watchErrors = watcher.Events, watcher.Errors
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case err := <-serverErr:
			return fmt.Errorf("serving API: %w", err)
		case <-ctx.Done():
			return shutdown(server)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Infof("Received SIGHUP, reloading configuration...")
				reload()
				continue
			}
			logger.Infof("Shutting down...")
			return shutdown(server)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Infof("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op.String())
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// Editors replace the file on save; give the new one time to
				// land and watch it again.
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload()
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			logger.Errorf("Config file watcher error: %v", err)
		}
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func optimizePeriodically(ctx context.Context, store *storage.Store, interval time.Duration) {
	logger := log.ForService("optimize")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Optimize(ctx); err != nil {
				logger.Errorf("failed to optimize database: %v", err)
			}
		}
	}
}
