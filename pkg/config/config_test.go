package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modkit.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":9090"
data_dir: /tmp/modkit
available_modules:
  - product
  - booking
core_paths:
  - healthz
reset_on_uninstall: true
log:
  level: debug
  json: true
rate_limit:
  requests_per_second: 5
  burst: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":9090")
	}
	if cfg.DataDir != "/tmp/modkit" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/tmp/modkit")
	}
	if len(cfg.AvailableModules) != 2 {
		t.Errorf("AvailableModules = %v, want 2 entries", cfg.AvailableModules)
	}
	if len(cfg.CorePaths) != 1 || cfg.CorePaths[0] != "healthz" {
		t.Errorf("CorePaths = %v, want [healthz]", cfg.CorePaths)
	}
	if !cfg.ResetOnUninstall {
		t.Error("ResetOnUninstall should be true")
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.RateLimit.RequestsPerSecond != 5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit = %+v, want 5 req/s burst 10", cfg.RateLimit)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "data_dir: /tmp/modkit\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("default Listen = %q, want %q", cfg.Listen, ":8080")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.ResetOnUninstall {
		t.Error("default ResetOnUninstall should be false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty listen",
			mutate:  func(c *Config) { c.Listen = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.RateLimit.RequestsPerSecond = -1 },
			wantErr: true,
		},
		{
			name: "rate without burst",
			mutate: func(c *Config) {
				c.RateLimit.RequestsPerSecond = 5
				c.RateLimit.Burst = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
