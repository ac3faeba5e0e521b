package cmd

import (
	"fmt"
	"time"

	"casewise/internal/audit"
	"casewise/internal/casefile"
	"casewise/internal/config"
	"casewise/internal/db"
	"casewise/internal/engine"
	"casewise/internal/events"
	"casewise/internal/history"
	"casewise/internal/signals"
	"casewise/internal/trace"
)

// loadConfig reads and validates the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the SQLite database inside the configured data
// directory, creating it on first use.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

// stack holds the stores one-off commands need outside the HTTP server.
type stack struct {
	cases   *casefile.Store
	engine  *engine.Engine
	history *history.Store
	audit   *audit.Store
}

// buildStack assembles the engine and its stores the same way the HTTP
// server does.
func buildStack(cfg *config.Config, database *db.DB) *stack {
	cases := casefile.NewStore(database)
	hist := history.NewStore(database)
	auditStore := audit.NewStore(database)

	eng := engine.New(
		cases,
		signals.NewStore(database),
		engine.NewStore(database),
		hist,
		auditStore,
		trace.NewStore(database),
		events.NewHub(),
		engine.Options{
			DebounceWindow: time.Duration(cfg.DebounceWindowSeconds) * time.Second,
			StaleAfter:     time.Duration(cfg.StaleAfterMinutes) * time.Minute,
		},
	)

	return &stack{cases: cases, engine: eng, history: hist, audit: auditStore}
}
