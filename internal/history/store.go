package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"casewise/internal/db"
	"casewise/internal/payload"
)

// Store persists the append-only history trail.
type Store struct {
	db *db.DB
}

// NewStore creates a history store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Append inserts one history record. Records are never updated in place;
// retention only nulls the two payload columns.
func (s *Store) Append(ctx context.Context, rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ComputedAt.IsZero() {
		rec.ComputedAt = time.Now().UTC()
	}

	snapshot, err := json.Marshal(rec.EvidenceSnapshot)
	if err != nil {
		return nil, fmt.Errorf("marshalling evidence snapshot: %w", err)
	}
	intel, err := json.Marshal(rec.IntelligencePayload)
	if err != nil {
		return nil, fmt.Errorf("marshalling intelligence payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intelligence_history (
			id, case_id, computed_at, confidence_score, confidence_band,
			rules_passed, rules_total, gap_count, bias_count,
			"trigger", actor_role, evidence_snapshot, evidence_hash,
			intelligence_payload, trace_id, span_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CaseID, rec.ComputedAt.UTC().Format(time.DateTime),
		rec.ConfidenceScore, rec.ConfidenceBand,
		rec.RulesPassed, rec.RulesTotal, rec.GapCount, rec.BiasCount,
		rec.Trigger, rec.ActorRole, string(snapshot), rec.EvidenceHash,
		string(intel), nullable(rec.TraceID), nullable(rec.SpanID),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting history record: %w", err)
	}
	return &rec, nil
}

// ListByCase returns a case's history newest first. A limit of 0 means all.
func (s *Store) ListByCase(ctx context.Context, caseID string, limit int) ([]Record, error) {
	query := `
		SELECT id, case_id, computed_at, confidence_score, confidence_band,
			   rules_passed, rules_total, gap_count, bias_count,
			   "trigger", actor_role, evidence_snapshot, evidence_hash,
			   intelligence_payload, trace_id, span_id
		FROM intelligence_history WHERE case_id = ?
		ORDER BY computed_at DESC, rowid DESC`
	args := []any{caseID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Latest returns a case's most recent record, or nil when none exists.
func (s *Store) Latest(ctx context.Context, caseID string) (*Record, error) {
	recs, err := s.ListByCase(ctx, caseID, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// RetentionResult counts what a retention sweep nulled.
type RetentionResult struct {
	SnapshotsCleared int64 `json:"snapshots_cleared"`
	PayloadsCleared  int64 `json:"payloads_cleared"`
}

// ApplyRetention nulls evidence snapshots older than evidenceDays and
// intelligence payloads older than payloadDays. The two windows are
// independent; hashes and score columns are never touched. A window of 0
// disables that half of the sweep.
func (s *Store) ApplyRetention(ctx context.Context, now time.Time, evidenceDays, payloadDays int) (RetentionResult, error) {
	var result RetentionResult

	if evidenceDays > 0 {
		cutoff := now.UTC().AddDate(0, 0, -evidenceDays).Format(time.DateTime)
		res, err := s.db.ExecContext(ctx, `
			UPDATE intelligence_history SET evidence_snapshot = NULL
			WHERE computed_at < ? AND evidence_snapshot IS NOT NULL`, cutoff)
		if err != nil {
			return result, fmt.Errorf("clearing evidence snapshots: %w", err)
		}
		result.SnapshotsCleared, _ = res.RowsAffected()
	}

	if payloadDays > 0 {
		cutoff := now.UTC().AddDate(0, 0, -payloadDays).Format(time.DateTime)
		res, err := s.db.ExecContext(ctx, `
			UPDATE intelligence_history SET intelligence_payload = NULL
			WHERE computed_at < ? AND intelligence_payload IS NOT NULL`, cutoff)
		if err != nil {
			return result, fmt.Errorf("clearing intelligence payloads: %w", err)
		}
		result.PayloadsCleared, _ = res.RowsAffected()
	}

	return result, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		rec                       Record
		computedAt                string
		snapshot, intel           sql.NullString
		actorRole, traceID, spanID sql.NullString
	)
	err := rows.Scan(
		&rec.ID, &rec.CaseID, &computedAt, &rec.ConfidenceScore, &rec.ConfidenceBand,
		&rec.RulesPassed, &rec.RulesTotal, &rec.GapCount, &rec.BiasCount,
		&rec.Trigger, &actorRole, &snapshot, &rec.EvidenceHash,
		&intel, &traceID, &spanID,
	)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.DateTime, computedAt); parseErr == nil {
		rec.ComputedAt = t.UTC()
	}
	rec.ActorRole = actorRole.String
	rec.TraceID = traceID.String
	rec.SpanID = spanID.String
	if snapshot.Valid {
		rec.EvidenceSnapshot = payload.FromJSON([]byte(snapshot.String))
	}
	if intel.Valid {
		rec.IntelligencePayload = payload.FromJSON([]byte(intel.String))
	}
	return &rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
