package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .casewise.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to casewise! Let's configure your instance.")
	fmt.Println()

	cfg := DefaultConfig()

	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	dataDirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataDirPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	debouncePrompt := promptui.Prompt{
		Label:    "Debounce window for automatic recomputes (seconds)",
		Default:  strconv.Itoa(cfg.DebounceWindowSeconds),
		Validate: validateNonNegative,
	}
	debounceStr, err := debouncePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("debounce window: %w", err)
	}
	cfg.DebounceWindowSeconds, _ = strconv.Atoi(debounceStr)

	retentionPrompt := promptui.Select{
		Label: "History retention",
		Items: []string{
			"standard — evidence 90 days, payloads 1 year",
			"short    — evidence 30 days, payloads 90 days",
			"forever  — never clear history payloads",
		},
	}
	retentionIdx, _, err := retentionPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}
	switch retentionIdx {
	case 1:
		cfg.Retention = RetentionConfig{EvidenceDays: 30, PayloadDays: 90}
	case 2:
		cfg.Retention = RetentionConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("enter a port between 1 and 65535")
	}
	return nil
}

func validateNonNegative(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("enter a non-negative number")
	}
	return nil
}
