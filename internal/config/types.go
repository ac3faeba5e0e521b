package config

// RetentionConfig controls the two independent history retention windows.
// A window of 0 days means that half of the sweep never runs.
type RetentionConfig struct {
	EvidenceDays int `yaml:"evidence_days" koanf:"evidence_days"`
	PayloadDays  int `yaml:"payload_days" koanf:"payload_days"`
}

// Config is the top-level casewise configuration, corresponding to
// .casewise.yml.
type Config struct {
	Port                  int             `yaml:"port" koanf:"port"`
	DataDir               string          `yaml:"data_dir" koanf:"data_dir"`
	DebounceWindowSeconds int             `yaml:"debounce_window_seconds" koanf:"debounce_window_seconds"`
	StaleAfterMinutes     int             `yaml:"stale_after_minutes" koanf:"stale_after_minutes"`
	Retention             RetentionConfig `yaml:"retention" koanf:"retention"`
	// SafeModePatterns overrides the default safe-mode allow-list.
	// Patterns are doublestar globs over dotted field paths.
	SafeModePatterns []string `yaml:"safe_mode_patterns" koanf:"safe_mode_patterns"`
	AllowAllOrigins  bool     `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:                  8460,
		DataDir:               ".casewise",
		DebounceWindowSeconds: 2,
		StaleAfterMinutes:     60,
		Retention: RetentionConfig{
			EvidenceDays: 90,
			PayloadDays:  365,
		},
		AllowAllOrigins: true,
	}
}
