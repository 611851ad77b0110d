package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const templateDBPath = "/home/user/.local/share/wsearch/wsearch.db"

// Search strategies.
const (
	StrategyUnion = "union"
	StrategyMerge = "merge"
)

type Config struct {
	DatabasePath string       `toml:"database_path"`
	Search       SearchConfig `toml:"search"`
	Server       ServerConfig `toml:"server"`
	Log          LogConfig    `toml:"log"`
}

type SearchConfig struct {
	DefaultLimit        int      `toml:"default_limit"`
	MaxLimit            int      `toml:"max_limit"`
	MaxQueryLength      int      `toml:"max_query_length"`
	Strategy            string   `toml:"strategy"`
	ValidateProjections *bool    `toml:"validate_projections,omitempty"`
	Timeout             Duration `toml:"timeout"`
	DisabledTypes       []string `toml:"disabled_types"`
}

type ServerConfig struct {
	Address      string   `toml:"address"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	UserHeader   string   `toml:"user_header"`

	// OptimizeInterval is how often serve optimizes the full-text indexes.
	// Zero disables it.
	OptimizeInterval Duration `toml:"optimize_interval"`
}

type LogConfig struct {
	Debug         bool     `toml:"debug"`
	DebugServices []string `toml:"debug_services"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// ShouldValidate reports whether projections are prepared before searching.
// Defaults to true when the key is absent.
func (s SearchConfig) ShouldValidate() bool {
	return s.ValidateProjections == nil || *s.ValidateProjections
}

// TypeDisabled reports whether the named search type is switched off.
func (s SearchConfig) TypeDisabled(name string) bool {
	for _, t := range s.DisabledTypes {
		if t == name {
			return true
		}
	}
	return false
}

func GetDefaultConfig() (*Config, error) {
	dbPath, err := GetDefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("getting default database path: %w", err)
	}
	c := &Config{DatabasePath: dbPath}
	c.applyDefaults()
	return c, nil
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.DatabasePath == "" {
		dbPath, err := GetDefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("getting default database path: %w", err)
		}
		config.DatabasePath = dbPath
	}
	config.DatabasePath = expandHome(config.DatabasePath)
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Search.DefaultLimit == 0 {
		c.Search.DefaultLimit = 20
	}
	if c.Search.MaxLimit == 0 {
		c.Search.MaxLimit = 100
	}
	if c.Search.MaxQueryLength == 0 {
		c.Search.MaxQueryLength = 100
	}
	if c.Search.Strategy == "" {
		c.Search.Strategy = StrategyUnion
	}
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.1:8080"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout = Duration{10 * time.Second}
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout = Duration{10 * time.Second}
	}
	if c.Server.UserHeader == "" {
		c.Server.UserHeader = "X-Wsearch-User"
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	switch c.Search.Strategy {
	case StrategyUnion, StrategyMerge:
	default:
		return fmt.Errorf("unknown search strategy %q", c.Search.Strategy)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("default_limit %d must be between 1 and max_limit %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.Timeout.Duration < 0 {
		return fmt.Errorf("negative search timeout %s", c.Search.Timeout)
	}
	if c.Server.OptimizeInterval.Duration < 0 {
		return fmt.Errorf("negative optimize interval %s", c.Server.OptimizeInterval)
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented configuration template, pointing
// database_path at the configured database.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	dbPath := c.DatabasePath
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return fmt.Errorf("getting default database path: %w", err)
		}
	}

	template := strings.Replace(configTemplate, templateDBPath, dbPath, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// GetDefaultStorageDir returns the data directory, creating it if needed.
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "wsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultDBPath returns the default database path in the user's data directory
func GetDefaultDBPath() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "wsearch.db"), nil
}

// GetConfigDir returns the configuration directory, creating it if needed.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "wsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
