package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("AT_DATA_DIR", "")
	cfg := DefaultConfig()

	if cfg.UI.ExpandDepth != 2 {
		t.Errorf("expected expand depth 2, got %d", cfg.UI.ExpandDepth)
	}
	if cfg.UI.SearchDebounce != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %v", cfg.UI.SearchDebounce)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("expected theme auto, got %q", cfg.UI.Theme)
	}
	if cfg.Filters.EnergySensors || cfg.Filters.CriticalStatus {
		t.Error("expected no criteria active by default")
	}
	if cfg.Watch.Enabled {
		t.Error("expected watch disabled by default")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.ExpandDepth != 2 {
		t.Errorf("expected default config, got depth %d", cfg.UI.ExpandDepth)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	t.Setenv("AT_DATA_DIR", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
data_dir: ~/plants
default_company: acme
ui:
  expand_depth: 3
  search_debounce: 150ms
  theme: Dark
filters:
  energy_sensors: true
watch:
  enabled: true
  poll_interval: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "plants"); cfg.DataDir != want {
		t.Errorf("expected expanded data dir %q, got %q", want, cfg.DataDir)
	}
	if cfg.DefaultCompany != "acme" {
		t.Errorf("expected default company acme, got %q", cfg.DefaultCompany)
	}
	if cfg.UI.ExpandDepth != 3 {
		t.Errorf("expected expand depth 3, got %d", cfg.UI.ExpandDepth)
	}
	if cfg.UI.SearchDebounce != 150*time.Millisecond {
		t.Errorf("expected 150ms debounce, got %v", cfg.UI.SearchDebounce)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("expected theme dark, got %q", cfg.UI.Theme)
	}
	if !cfg.Filters.EnergySensors || cfg.Filters.CriticalStatus {
		t.Errorf("unexpected filters %+v", cfg.Filters)
	}
	if !cfg.Watch.Enabled || cfg.Watch.PollInterval != 5*time.Second {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}
}

func TestLoadFrom_InvalidValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ui:
  expand_depth: -4
  theme: neon
watch:
  poll_interval: -1s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UI.ExpandDepth != 0 {
		t.Errorf("expected clamped depth 0, got %d", cfg.UI.ExpandDepth)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("expected theme auto, got %q", cfg.UI.Theme)
	}
	if cfg.Watch.PollInterval != 2*time.Second {
		t.Errorf("expected default poll interval, got %v", cfg.Watch.PollInterval)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ui: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.UI.ExpandDepth != 2 {
		t.Errorf("expected defaults alongside the error, got depth %d", cfg.UI.ExpandDepth)
	}
}

func TestDataDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AT_DATA_DIR", dir)

	if got := DataDir(); got != dir {
		t.Errorf("expected %q, got %q", dir, got)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /elsewhere\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != dir {
		t.Errorf("expected env to win, got %q", cfg.DataDir)
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ConfigDir(); got != "/tmp/xdg/assettree" {
		t.Errorf("unexpected config dir %q", got)
	}
	if got := ConfigPath(); got != "/tmp/xdg/assettree/config.yaml" {
		t.Errorf("unexpected config path %q", got)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Config{DataDir: "/data"}
	if got := cfg.DatabasePath(); got != "/data/assets.db" {
		t.Errorf("unexpected default db path %q", got)
	}
	cfg.Database = "/other/site.db"
	if got := cfg.DatabasePath(); got != "/other/site.db" {
		t.Errorf("expected explicit db path, got %q", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("AT_DATA_DIR", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.DataDir = "/srv/plants"
	cfg.DefaultCompany = "tobias"
	cfg.Filters.CriticalStatus = true

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if got.DataDir != "/srv/plants" || got.DefaultCompany != "tobias" || !got.Filters.CriticalStatus {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.UI.SearchDebounce != 300*time.Millisecond {
		t.Errorf("expected debounce preserved, got %v", got.UI.SearchDebounce)
	}
}
