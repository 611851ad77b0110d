package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/rubiojr/wsearch/pkg/search"
	"github.com/rubiojr/wsearch/pkg/storage"
)

// setupWorkspace writes a config pointing at a migrated and seeded database
// and returns the config path.
func setupWorkspace(t *testing.T) (string, *storage.SeedResult) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "wsearch.db")
	configPath := filepath.Join(dir, "config.toml")

	content := fmt.Sprintf("database_path = %q\n[search]\nstrategy = \"merge\"\n", dbPath)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := RunMigrations(ctx, dbPath, false); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore(store)
	seed, err := store.Seed(ctx)
	if err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	return configPath, seed
}

// runSearch runs the search command with args, capturing its output.
func runSearch(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	searchCmd := SearchCommand()
	searchCmd.Action = func(ctx context.Context, c *cli.Command) error {
		return searchWorkspace(ctx, c, &out)
	}
	app := &cli.Command{
		Name: "wsearch",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug"},
			&cli.StringFlag{Name: "config"},
		},
		Commands: []*cli.Command{searchCmd},
	}
	argv := append([]string{"wsearch", "--config", configPath, "search"}, args...)
	err := app.Run(context.Background(), argv)
	return out.String(), err
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "wsearch.db")
	ctx := context.Background()

	if err := RunMigrations(ctx, dbPath, true); err != nil {
		t.Fatalf("status on a missing database: %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Error("status must not create the database")
	}

	for i := 0; i < 2; i++ {
		if err := RunMigrations(ctx, dbPath, false); err != nil {
			t.Fatalf("RunMigrations run %d: %v", i+1, err)
		}
	}
	if err := RunMigrations(ctx, dbPath, true); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestSearchCommandJSON(t *testing.T) {
	configPath, seed := setupWorkspace(t)

	out, err := runSearch(t, configPath,
		"--workspace", fmt.Sprint(seed.Workspace.ID),
		"--user", seed.User.Email,
		"--query", "Database",
		"--limit", "2",
		"--json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	var resp struct {
		Results []map[string]any `json:"results"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Failed to decode output %q: %v", out, err)
	}
	if len(resp.Results) != 2 || !resp.HasMore {
		t.Fatalf("Expected 2 results and more, got %+v", resp)
	}
	if resp.Results[0]["title"] != "Database 1" || resp.Results[1]["title"] != "Database 2" {
		t.Errorf("Unexpected results %v", resp.Results)
	}
}

func TestSearchCommandSingleType(t *testing.T) {
	configPath, seed := setupWorkspace(t)

	out, err := runSearch(t, configPath,
		"--workspace", fmt.Sprint(seed.Workspace.ID),
		"--user", seed.User.Email,
		"--query", "London",
		"--type", "database_row",
		"--json")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Ada Lovelace") || !strings.Contains(out, "Alan Turing") {
		t.Errorf("Expected both London rows, got %s", out)
	}
}

func TestSearchCommandSingleTypeHasMore(t *testing.T) {
	configPath, seed := setupWorkspace(t)

	for _, tt := range []struct {
		limit   string
		count   int
		hasMore bool
	}{
		{"1", 1, true},
		{"2", 2, false},
	} {
		out, err := runSearch(t, configPath,
			"--workspace", fmt.Sprint(seed.Workspace.ID),
			"--user", seed.User.Email,
			"--query", "London",
			"--type", "database_row",
			"--limit", tt.limit,
			"--json")
		if err != nil {
			t.Fatalf("search: %v", err)
		}

		var resp struct {
			Results []map[string]any `json:"results"`
			HasMore bool             `json:"has_more"`
		}
		if err := json.Unmarshal([]byte(out), &resp); err != nil {
			t.Fatalf("Failed to decode output %q: %v", out, err)
		}
		if len(resp.Results) != tt.count || resp.HasMore != tt.hasMore {
			t.Errorf("limit %s: expected %d results (has_more=%t), got %+v", tt.limit, tt.count, tt.hasMore, resp)
		}
	}
}

func TestSearchCommandErrors(t *testing.T) {
	configPath, seed := setupWorkspace(t)
	ws := fmt.Sprint(seed.Workspace.ID)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"outsider", []string{"--workspace", ws, "--user", seed.Outsider.Email, "--query", "x"}, search.ErrUserNotInWorkspace},
		{"unknown workspace", []string{"--workspace", "999", "--user", seed.User.Email, "--query", "x"}, search.ErrWorkspaceNotFound},
		{"unknown user", []string{"--workspace", ws, "--user", "nobody@example.com", "--query", "x"}, search.ErrUserNotFound},
		{"unknown type", []string{"--workspace", ws, "--user", seed.User.Email, "--query", "x", "--type", "nope"}, search.ErrTypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runSearch(t, configPath, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want.Error()) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := runSearch(t, configPath, "--workspace", ws, "--user", seed.User.Email, "--query", "x", "--limit", "500"); err == nil {
		t.Error("Expected limit above max_limit to fail")
	}
}

func TestRenderResults(t *testing.T) {
	subtitle := "Table in Database 1"
	out := searchOutput{
		Results: []search.SearchResult{
			{Type: "database", ID: "1", Title: "Database 1", Subtitle: search.StringPtr("Database")},
			{Type: "database_table", ID: "7", Title: "Customers", Subtitle: &subtitle},
		},
		HasMore: true,
	}
	degraded := []search.TypeError{{Type: "database_row", Stage: search.StageQuery, Err: fmt.Errorf("boom")}}

	var buf bytes.Buffer
	renderResults(&buf, search.Workspace{ID: 1, Name: "Demo"}, "data", out, degraded)
	text := buf.String()

	for _, want := range []string{"Demo", "Database", "Database Table", "Customers", "#7", subtitle, "--offset", "database_row results are missing"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output does not contain %q:\n%s", want, text)
		}
	}

	buf.Reset()
	renderResults(&buf, search.Workspace{Name: "Demo"}, "zzz", searchOutput{}, nil)
	if !strings.Contains(buf.String(), "No results found") {
		t.Errorf("Expected empty message, got %s", buf.String())
	}
}
