// Package config handles loading and saving at configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/assettree/config.yaml
//   - Data:   ~/.local/share/assettree/ (default data directory)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "assettree"

// UIConfig holds TUI preference settings.
type UIConfig struct {
	ExpandDepth    int           `yaml:"expand_depth,omitempty"`    // Levels expanded on first render
	SearchDebounce time.Duration `yaml:"search_debounce,omitempty"` // Delay before a search is applied
	Theme          string        `yaml:"theme,omitempty"`           // auto, dark, light
}

// FilterConfig holds the criteria applied at startup.
type FilterConfig struct {
	EnergySensors  bool `yaml:"energy_sensors,omitempty"`
	CriticalStatus bool `yaml:"critical_status,omitempty"`
}

// WatchConfig controls live reload.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// Config is the top-level configuration for at.
type Config struct {
	DataDir        string       `yaml:"data_dir,omitempty"`
	Database       string       `yaml:"database,omitempty"`
	DefaultCompany string       `yaml:"default_company,omitempty"`
	UI             UIConfig     `yaml:"ui,omitempty"`
	Filters        FilterConfig `yaml:"filters,omitempty"`
	Watch          WatchConfig  `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir: DataDir(),
		UI: UIConfig{
			ExpandDepth:    2,
			SearchDebounce: 300 * time.Millisecond,
			Theme:          "auto",
		},
		Watch: WatchConfig{
			PollInterval: 2 * time.Second,
		},
	}
}

// ConfigDir returns the XDG config directory for at.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the default data directory. AT_DATA_DIR takes precedence
// over XDG_DATA_HOME.
func DataDir() string {
	if dir := os.Getenv("AT_DATA_DIR"); dir != "" {
		return expandHome(dir)
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}

	// An explicit AT_DATA_DIR beats the file.
	if dir := os.Getenv("AT_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Database = expandHome(cfg.Database)
	cfg.normalize()

	return cfg, nil
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.UI.ExpandDepth < 0 {
		c.UI.ExpandDepth = 0
	}
	if c.UI.SearchDebounce < 0 {
		c.UI.SearchDebounce = def.UI.SearchDebounce
	}
	switch strings.ToLower(strings.TrimSpace(c.UI.Theme)) {
	case "dark", "light":
		c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
	default:
		c.UI.Theme = def.UI.Theme
	}
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = def.Watch.PollInterval
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DatabasePath returns the SQLite database location: the configured path, or
// assets.db inside the data directory.
func (c Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "assets.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
