package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casewise/internal/db"
)

// Store persists signal sets. Replacement is atomic: the prior set is
// superseded and the new set inserted in one transaction.
type Store struct {
	db *db.DB
}

// NewStore creates a signal store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// ReplaceForCase supersedes the case's live signals and writes the new set.
func (s *Store) ReplaceForCase(ctx context.Context, caseID string, set []Signal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning signal replace: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.DateTime)
	_, err = tx.ExecContext(ctx,
		`UPDATE signals SET superseded_at = ? WHERE case_id = ? AND superseded_at IS NULL`,
		now, caseID,
	)
	if err != nil {
		return fmt.Errorf("superseding signals: %w", err)
	}

	for _, sig := range set {
		meta, err := json.Marshal(sig.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling signal metadata: %w", err)
		}
		complete := 0
		if sig.Complete {
			complete = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO signals (id, case_id, decision_type, signal_type, source_type, strength, complete, observed_at, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sig.ID, sig.CaseID, sig.DecisionType, sig.SignalType, string(sig.SourceType),
			sig.Strength, complete, sig.ObservedAt.UTC().Format(time.DateTime), string(meta),
		)
		if err != nil {
			return fmt.Errorf("inserting signal %s: %w", sig.SignalType, err)
		}
	}

	return tx.Commit()
}

// ListActive returns the case's live (non-superseded) signals in insertion
// order.
func (s *Store) ListActive(ctx context.Context, caseID string) ([]Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, decision_type, signal_type, source_type, strength, complete, observed_at, metadata
		FROM signals WHERE case_id = ? AND superseded_at IS NULL ORDER BY rowid ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing signals: %w", err)
	}
	defer rows.Close()

	var out []Signal
	for rows.Next() {
		var sig Signal
		var sourceType, observedAt, meta string
		var complete int
		if err := rows.Scan(&sig.ID, &sig.CaseID, &sig.DecisionType, &sig.SignalType,
			&sourceType, &sig.Strength, &complete, &observedAt, &meta); err != nil {
			return nil, err
		}
		sig.SourceType = SourceType(sourceType)
		sig.Complete = complete != 0
		if t, err := time.Parse(time.DateTime, observedAt); err == nil {
			sig.ObservedAt = t
		}
		if err := json.Unmarshal([]byte(meta), &sig.Metadata); err != nil {
			sig.Metadata = nil
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
