// Package config loads the analyzer configuration from YAML with environment
// variable expansion, so API keys and DSNs can stay out of the file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level analyzer configuration.
type Config struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	Models   ModelsConfig  `yaml:"models"`
	Timeout  int           `yaml:"timeout_seconds"`
	Store    StoreConfig   `yaml:"store"`
	Logging  LoggingConfig `yaml:"logging"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// ModelsConfig selects the model per analyzer role. Empty entries use the
// provider's default model.
type ModelsConfig struct {
	Security string `yaml:"security"`
	Quality  string `yaml:"quality"`
	Logic    string `yaml:"logic"`
	Context  string `yaml:"context"`
}

// StoreConfig selects the persistence backend. Driver is one of "memory",
// "sqlite", "mysql"; empty means memory.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls the workflow event log.
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. ":9090"; empty disables the endpoint
}

// Load reads, env-expands, parses, and validates a YAML config file.
func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Default returns the configuration used when no config file is given: a
// mock-friendly in-memory setup with the standard two-minute budget.
func Default() Config {
	return Config{
		Provider: "anthropic",
		Timeout:  120,
		Store:    StoreConfig{Driver: "memory"},
		Logging:  LoggingConfig{Format: "text"},
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "google":
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("unknown provider %q (want anthropic, openai, or google)", c.Provider)
	}

	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}

	switch c.Store.Driver {
	case "", "memory":
	case "sqlite", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q (want memory, sqlite, or mysql)", c.Store.Driver)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q (want text or json)", c.Logging.Format)
	}

	return nil
}

// TimeoutDuration converts the configured timeout to a time.Duration, falling
// back to the two-minute default when unset.
func (c Config) TimeoutDuration() time.Duration {
	if c.Timeout == 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.Timeout) * time.Second
}
