package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if want := filepath.Join(dataHome, "wsearch", "wsearch.db"); cfg.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, want)
	}
	if cfg.Search.DefaultLimit != 20 || cfg.Search.MaxLimit != 100 || cfg.Search.MaxQueryLength != 100 {
		t.Errorf("unexpected search limits: %+v", cfg.Search)
	}
	if cfg.Search.Strategy != StrategyUnion {
		t.Errorf("Strategy = %q, want %q", cfg.Search.Strategy, StrategyUnion)
	}
	if !cfg.Search.ShouldValidate() {
		t.Error("projection validation should default to on")
	}
	if cfg.Server.UserHeader != "X-Wsearch-User" {
		t.Errorf("UserHeader = %q", cfg.Server.UserHeader)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	dbPath := filepath.Join(dir, "search.db")

	c := &Config{DatabasePath: dbPath}
	if err := c.SaveTemplateConfig(path); err != nil {
		t.Fatalf("SaveTemplateConfig: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), dbPath) {
		t.Fatalf("template does not reference %s", dbPath)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DatabasePath != dbPath {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, dbPath)
	}
	if cfg.Search.Timeout.Duration != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.Search.Timeout)
	}
	if cfg.Server.ReadTimeout.Duration != 10*time.Second {
		t.Errorf("ReadTimeout = %s, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.OptimizeInterval.Duration != time.Hour {
		t.Errorf("OptimizeInterval = %s, want 1h", cfg.Server.OptimizeInterval)
	}
	if len(cfg.Search.DisabledTypes) != 0 {
		t.Errorf("DisabledTypes = %v, want none", cfg.Search.DisabledTypes)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
database_path = "/tmp/ws.db"

[search]
default_limit = 10
strategy = "merge"
validate_projections = false
timeout = "250ms"
disabled_types = ["database_row"]

[log]
debug_services = ["search"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Search.Strategy != StrategyMerge {
		t.Errorf("Strategy = %q", cfg.Search.Strategy)
	}
	if cfg.Search.ShouldValidate() {
		t.Error("validate_projections = false was ignored")
	}
	if cfg.Search.Timeout.Duration != 250*time.Millisecond {
		t.Errorf("Timeout = %s", cfg.Search.Timeout)
	}
	if !cfg.Search.TypeDisabled("database_row") || cfg.Search.TypeDisabled("database") {
		t.Errorf("unexpected disabled types: %v", cfg.Search.DisabledTypes)
	}
	if len(cfg.Log.DebugServices) != 1 || cfg.Log.DebugServices[0] != "search" {
		t.Errorf("DebugServices = %v", cfg.Log.DebugServices)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown strategy", "[search]\nstrategy = \"fanout\"\n", "unknown search strategy"},
		{"default above max", "[search]\ndefault_limit = 200\nmax_limit = 100\n", "default_limit"},
		{"bad duration", "[search]\ntimeout = \"soon\"\n", "unmarshaling config"},
		{"negative optimize interval", "[server]\noptimize_interval = \"-1m\"\n", "optimize interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "database_path = \"/tmp/ws.db\"\n" + tt.content
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
