package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	migrations, err := GetEmbeddedMigrations()
	if err != nil {
		t.Fatalf("GetEmbeddedMigrations: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.SQL == "" {
			t.Errorf("migration %d (%s) is empty", m.Version, m.Name)
		}
	}
	if migrations[0].Name != "workspace_schema" {
		t.Errorf("first migration name = %q", migrations[0].Name)
	}
}

func TestInitializeDatabaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := InitializeDatabase(ctx, db); err != nil {
		t.Fatalf("first InitializeDatabase: %v", err)
	}
	if err := InitializeDatabase(ctx, db); err != nil {
		t.Fatalf("second InitializeDatabase: %v", err)
	}

	status, err := NewMigrationManager(db).GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if len(status.Pending) != 0 {
		t.Errorf("expected no pending migrations, got %d", len(status.Pending))
	}
	if len(status.Applied) != len(status.Available) {
		t.Errorf("applied %d of %d migrations", len(status.Applied), len(status.Available))
	}

	for _, table := range []string{"workspaces", "applications", "database_cells", "applications_fts", "database_cells_fts"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestFulltextTriggersFollowNameChanges(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := InitializeDatabase(ctx, db); err != nil {
		t.Fatal(err)
	}

	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
	}
	count := func(match string) int {
		t.Helper()
		var n int
		if err := db.QueryRowContext(ctx, "SELECT count(*) FROM applications_fts WHERE applications_fts MATCH ?", match).Scan(&n); err != nil {
			t.Fatal(err)
		}
		return n
	}

	mustExec("INSERT INTO workspaces (name) VALUES ('ws')")
	mustExec("INSERT INTO applications (workspace_id, type, name) VALUES (1, 'database', 'Inventory')")
	if got := count("inventory"); got != 1 {
		t.Fatalf("expected indexed name, got %d matches", got)
	}

	mustExec("UPDATE applications SET name = 'Stock' WHERE id = 1")
	if got := count("inventory"); got != 0 {
		t.Errorf("old name still indexed: %d matches", got)
	}
	if got := count("stock"); got != 1 {
		t.Errorf("new name not indexed: %d matches", got)
	}

	mustExec("DELETE FROM applications WHERE id = 1")
	if got := count("stock"); got != 0 {
		t.Errorf("deleted row still indexed: %d matches", got)
	}
}

func TestMigrationsFromPath(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := t.TempDir()

	files := map[string]string{
		"001_first.sql":  "CREATE TABLE a (id INTEGER);",
		"002_second.sql": "CREATE TABLE b (id INTEGER);",
		"notes.txt":      "ignored",
		"xyz_bad.sql":    "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewMigrationManagerFromPath(db, dir)
	n, err := m.ApplyPendingMigrations(ctx)
	if err != nil {
		t.Fatalf("ApplyPendingMigrations: %v", err)
	}
	if n != 2 {
		t.Fatalf("applied %d migrations, want 2", n)
	}

	if err := os.WriteFile(filepath.Join(dir, "003_broken.sql"), []byte("CREATE TABLE ("), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ApplyPendingMigrations(ctx); err == nil {
		t.Fatal("expected broken migration to fail")
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Version != 3 {
		t.Errorf("expected migration 3 to stay pending, got %+v", pending)
	}
}
