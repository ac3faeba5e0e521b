package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = ".casewise.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CASEWISE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: CASEWISE_PORT -> port,
	// CASEWISE_RETENTION__EVIDENCE_DAYS -> retention.evidence_days.
	if err := k.Load(env.Provider("CASEWISE_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "CASEWISE_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// DatabasePath returns the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "casewise.db")
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.DebounceWindowSeconds < 0 {
		return fmt.Errorf("debounce_window_seconds must be non-negative")
	}
	if c.StaleAfterMinutes <= 0 {
		return fmt.Errorf("stale_after_minutes must be positive")
	}
	if c.Retention.EvidenceDays < 0 || c.Retention.PayloadDays < 0 {
		return fmt.Errorf("retention windows must be non-negative")
	}
	if c.Retention.PayloadDays > 0 && c.Retention.EvidenceDays > c.Retention.PayloadDays {
		return fmt.Errorf("retention.evidence_days must not exceed retention.payload_days")
	}
	return nil
}
