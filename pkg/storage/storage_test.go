package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rubiojr/wsearch/pkg/search"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"Database 1", "database", true},
		{"Database 1", "DATA", true},
		{"Database 1", "builder", false},
		{"Straße", "STRASSE", true},
		{"ÉCOLE", "école", true},
		{"anything", "", true},
	}
	for _, tt := range tests {
		if got := ContainsFold(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("ContainsFold(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}

func TestIContainsSQLFunction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT icontains('Test Builder', 'test')", true},
		{"SELECT icontains('Test Builder', 'database')", false},
		{"SELECT icontains('Über', 'üBER')", true},
		{"SELECT icontains(NULL, 'x')", false},
		{"SELECT icontains('x', NULL)", false},
	}
	for _, tt := range tests {
		var got bool
		if err := s.DB().QueryRowContext(ctx, tt.query).Scan(&got); err != nil {
			t.Fatalf("%s: %v", tt.query, err)
		}
		if got != tt.want {
			t.Errorf("%s = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestUsersAndWorkspaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "ada@example.com", "Ada")
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got != u {
		t.Errorf("GetUserByEmail = %+v, want %+v", got, u)
	}
	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, search.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	ws, err := s.CreateWorkspace(ctx, "Team")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, ws.ID, u.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, ws.ID, u.ID); err != nil {
		t.Fatalf("adding an existing member should be a no-op: %v", err)
	}

	list, err := s.ListWorkspaces(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0] != ws {
		t.Errorf("ListWorkspaces = %+v", list)
	}

	if err := s.Trash(ctx, TrashWorkspace, ws.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWorkspace(ctx, ws.ID); !errors.Is(err, search.ErrWorkspaceNotFound) {
		t.Errorf("expected trashed workspace to be not found, got %v", err)
	}
	if err := s.Restore(ctx, TrashWorkspace, ws.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetWorkspace(ctx, ws.ID); err != nil {
		t.Errorf("restored workspace: %v", err)
	}
	if err := s.Trash(ctx, TrashWorkspace, 999); err == nil {
		t.Error("expected error trashing a missing workspace")
	}
}

func TestCellsAreIndexed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ws, err := s.CreateWorkspace(ctx, "Team")
	if err != nil {
		t.Fatal(err)
	}
	dbID, err := s.CreateApplication(ctx, ws.ID, KindDatabase, "CRM")
	if err != nil {
		t.Fatal(err)
	}
	table, err := s.CreateTable(ctx, dbID, "People")
	if err != nil {
		t.Fatal(err)
	}
	field, err := s.CreateField(ctx, table, Field{Name: "Name", Primary: true})
	if err != nil {
		t.Fatal(err)
	}
	row, err := s.CreateRow(ctx, table, map[int64]string{field: "Grace Hopper"})
	if err != nil {
		t.Fatal(err)
	}

	matches := func(q string) int {
		t.Helper()
		var n int
		err := s.DB().QueryRowContext(ctx,
			"SELECT count(*) FROM database_cells_fts WHERE database_cells_fts MATCH ?", q).Scan(&n)
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	if matches("hopper") != 1 {
		t.Fatal("new cell value not indexed")
	}
	if err := s.SetCell(ctx, row, field, "Ada Lovelace"); err != nil {
		t.Fatal(err)
	}
	if matches("hopper") != 0 || matches("lovelace") != 1 {
		t.Error("updated cell value not reindexed")
	}

	if err := s.Rename(ctx, TrashTable, table, "Contacts"); err != nil {
		t.Fatal(err)
	}
	if err := s.Rename(ctx, TrashRow, row, "x"); err == nil {
		t.Error("rows have no name, rename should fail")
	}

	if err := s.RebuildIndex(ctx); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if err := s.Optimize(ctx); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if matches("lovelace") != 1 {
		t.Error("index lost rows after rebuild")
	}
	if err := s.CheckIntegrity(ctx, true); err != nil {
		t.Errorf("CheckIntegrity: %v", err)
	}
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(res.Databases) != 3 || res.Builder == 0 || res.Rows != 6 {
		t.Errorf("unexpected seed result: %+v", res)
	}

	var apps int
	if err := s.DB().QueryRowContext(ctx, "SELECT count(*) FROM applications WHERE workspace_id = ?", res.Workspace.ID).Scan(&apps); err != nil {
		t.Fatal(err)
	}
	if apps != 6 {
		t.Errorf("expected 6 applications, got %d", apps)
	}
}
