package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the process-wide engine configuration, read once at
// startup and immutable thereafter.
type Config struct {
	// Listen is the HTTP listen address for the engine
	Listen string `yaml:"listen"`

	// DataDir holds the module record database. Empty selects the
	// in-memory store (state lost on restart).
	DataDir string `yaml:"data_dir"`

	// AvailableModules is the allow-list of module ids eligible for
	// gating. Empty allows every registered module.
	AvailableModules []string `yaml:"available_modules"`

	// CorePaths lists extra path segments that always bypass module
	// gating, on top of the built-in defaults.
	CorePaths []string `yaml:"core_paths"`

	// ResetOnUninstall clears a module's configured base path and
	// version when it is uninstalled instead of preserving them.
	ResetOnUninstall bool `yaml:"reset_on_uninstall"`

	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// LogConfig controls structured logging output
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RateLimitConfig limits admin API calls per client IP. Zero disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file, applying defaults for absent
// fields.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate limit requests_per_second must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive when limiting is enabled")
	}
	return nil
}
