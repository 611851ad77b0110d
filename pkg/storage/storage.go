// Package storage opens the wsearch SQLite database and manages the
// workspace content that search runs over.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rubiojr/wsearch/pkg/db"
	"github.com/rubiojr/wsearch/pkg/log"
)

// connectionPragmas run on every new connection of the pool.
var connectionPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 30000",
	"PRAGMA foreign_keys = ON",
	"PRAGMA cache_size = -64000", // 64MB cache
	"PRAGMA temp_store = memory",
	"PRAGMA mmap_size = 268435456", // 256MB mmap
}

// Store wraps the database handle.
type Store struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

// Open opens (creating if needed) the database at path. Every connection gets
// the pragmas above and the SQL functions search relies on.
func Open(path string) (*Store, error) {
	database, err := driver.Open(path, initConn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return &Store{db: database, path: path, logger: log.ForService("storage")}, nil
}

// OpenAndMigrate opens the database and applies pending migrations.
func OpenAndMigrate(ctx context.Context, path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func initConn(c *sqlite3.Conn) error {
	for _, pragma := range connectionPragmas {
		if err := c.Exec(pragma); err != nil {
			return fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	return RegisterFunctions(c)
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := db.InitializeDatabase(ctx, s.db); err != nil {
		return fmt.Errorf("migrating %s: %w", s.path, err)
	}
	return nil
}

// MigrationManager returns a migration manager bound to the store.
func (s *Store) MigrationManager() *db.MigrationManager {
	return db.NewMigrationManager(s.db)
}

var ftsTables = []string{"applications_fts", "database_tables_fts", "database_fields_fts", "database_cells_fts"}

// Optimize merges the full-text index segments and refreshes the query
// planner statistics.
func (s *Store) Optimize(ctx context.Context) error {
	for _, t := range ftsTables {
		q := fmt.Sprintf("INSERT INTO %s(%s) VALUES ('optimize')", t, t)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("optimizing %s: %w", t, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("optimizing database: %w", err)
	}
	s.logger.Debugf("optimized %s", s.path)
	return nil
}

// RebuildIndex rebuilds every full-text index from its content table.
func (s *Store) RebuildIndex(ctx context.Context) error {
	for _, t := range ftsTables {
		q := fmt.Sprintf("INSERT INTO %s(%s) VALUES ('rebuild')", t, t)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("rebuilding %s: %w", t, err)
		}
	}
	return nil
}

// CheckIntegrity runs SQLite's integrity check and, when fts is set, the
// full-text index integrity checks.
func (s *Store) CheckIntegrity(ctx context.Context, fts bool) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("checking integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	if !fts {
		return nil
	}
	for _, t := range ftsTables {
		q := fmt.Sprintf("INSERT INTO %s(%s, rank) VALUES ('integrity-check', 1)", t, t)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("checking %s: %w", t, err)
		}
	}
	return nil
}
