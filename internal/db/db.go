package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with casewise-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS cases (
    id TEXT PRIMARY KEY,
    decision_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open','in_review','decided','closed')),
    title TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    case_id TEXT NOT NULL UNIQUE REFERENCES cases(id) ON DELETE CASCADE,
    fields TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS attachments (
    id TEXT PRIMARY KEY,
    case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    class TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    verified INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_attachments_case ON attachments(case_id);

CREATE TABLE IF NOT EXISTS case_events (
    id TEXT PRIMARY KEY,
    case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    occurred_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_case_events_case ON case_events(case_id, occurred_at);

CREATE TABLE IF NOT EXISTS signals (
    id TEXT PRIMARY KEY,
    case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    decision_type TEXT NOT NULL,
    signal_type TEXT NOT NULL,
    source_type TEXT NOT NULL CHECK(source_type IN ('submission','evidence','event','trace')),
    strength REAL NOT NULL,
    complete INTEGER NOT NULL DEFAULT 0,
    observed_at DATETIME NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    superseded_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_signals_case_live ON signals(case_id) WHERE superseded_at IS NULL;

CREATE TABLE IF NOT EXISTS decision_intelligence (
    case_id TEXT PRIMARY KEY REFERENCES cases(id) ON DELETE CASCADE,
    decision_type TEXT NOT NULL,
    computed_at DATETIME NOT NULL,
    completeness_score REAL NOT NULL DEFAULT 0,
    confidence_score REAL NOT NULL DEFAULT 0,
    confidence_band TEXT NOT NULL CHECK(confidence_band IN ('high','medium','low')),
    rules_confidence REAL NOT NULL DEFAULT 0,
    rules_band TEXT NOT NULL DEFAULT 'low',
    rules_passed INTEGER NOT NULL DEFAULT 0,
    rules_total INTEGER NOT NULL DEFAULT 0,
    diagnosis TEXT NOT NULL DEFAULT 'ok',
    gaps TEXT NOT NULL DEFAULT '[]',
    bias_flags TEXT NOT NULL DEFAULT '[]',
    field_issues TEXT NOT NULL DEFAULT '[]',
    rule_results TEXT NOT NULL DEFAULT '[]',
    explanation_factors TEXT NOT NULL DEFAULT '[]',
    narrative TEXT NOT NULL DEFAULT '{}',
    executive_summary TEXT NOT NULL DEFAULT '',
    badges TEXT NOT NULL DEFAULT '[]',
    signals TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS intelligence_history (
    id TEXT PRIMARY KEY,
    case_id TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    computed_at DATETIME NOT NULL,
    confidence_score REAL NOT NULL,
    confidence_band TEXT NOT NULL,
    rules_passed INTEGER NOT NULL DEFAULT 0,
    rules_total INTEGER NOT NULL DEFAULT 0,
    gap_count INTEGER NOT NULL DEFAULT 0,
    bias_count INTEGER NOT NULL DEFAULT 0,
    "trigger" TEXT NOT NULL,
    actor_role TEXT NOT NULL DEFAULT '',
    evidence_snapshot TEXT,
    evidence_hash TEXT NOT NULL,
    intelligence_payload TEXT,
    trace_id TEXT,
    span_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_history_case ON intelligence_history(case_id, computed_at DESC);

CREATE TABLE IF NOT EXISTS trace_spans (
    span_id TEXT PRIMARY KEY,
    trace_id TEXT NOT NULL,
    parent_span_id TEXT,
    case_id TEXT,
    span_name TEXT NOT NULL,
    span_kind TEXT NOT NULL DEFAULT 'internal',
    started_at DATETIME NOT NULL,
    duration_us INTEGER NOT NULL DEFAULT 0,
    error_text TEXT,
    metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_trace_spans_trace ON trace_spans(trace_id);

CREATE TABLE IF NOT EXISTS audit_entries (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT (datetime('now')),
    actor_type TEXT NOT NULL CHECK(actor_type IN ('user','system','agent')),
    actor_role TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    case_id TEXT NOT NULL DEFAULT '',
    "trigger" TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_case ON audit_entries(case_id);
`
