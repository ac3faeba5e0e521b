package casefile

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

// Store provides persistence for cases and their artifacts.
type Store struct {
	db *db.DB
}

// NewStore creates a case store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateCase inserts a new case. If c.ID is empty a UUID is generated.
// A case_created timeline event is recorded alongside.
func (s *Store) CreateCase(ctx context.Context, c Case) (*Case, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusOpen
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning case insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cases (id, decision_type, status, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.DecisionType, string(c.Status), c.Title,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting case: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO case_events (id, case_id, event_type, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), c.ID, string(EventCaseCreated), c.Title, now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting case_created event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing case insert: %w", err)
	}
	return &c, nil
}

// GetCase retrieves a case by id. Returns nil if not found.
func (s *Store) GetCase(ctx context.Context, id string) (*Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, decision_type, status, title, created_at, updated_at
		FROM cases WHERE id = ?`, id)

	var c Case
	var status, createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.DecisionType, &status, &c.Title, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning case: %w", err)
	}
	c.Status = Status(status)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// ListCaseIDs returns the ids of all cases, oldest first.
func (s *Store) ListCaseIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM cases ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetStatus updates a case's status and records a status_changed event.
func (s *Store) SetStatus(ctx context.Context, caseID string, status Status) error {
	now := time.Now().UTC().Format(time.DateTime)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning status update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE cases SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, caseID,
	)
	if err != nil {
		return fmt.Errorf("updating case status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no case found with id %s", caseID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO case_events (id, case_id, event_type, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), caseID, string(EventStatusChanged), string(status), now,
	)
	if err != nil {
		return fmt.Errorf("inserting status_changed event: %w", err)
	}

	return tx.Commit()
}

// UpsertSubmission creates or replaces the submission linked to a case.
// Returns the stored submission and whether one already existed.
func (s *Store) UpsertSubmission(ctx context.Context, caseID string, fields payload.Value) (*Submission, bool, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, false, fmt.Errorf("marshalling submission fields: %w", err)
	}

	existing, err := s.GetSubmission(ctx, caseID)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	if existing != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE submissions SET fields = ?, updated_at = ? WHERE case_id = ?`,
			string(fieldsJSON), now.Format(time.DateTime), caseID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("updating submission: %w", err)
		}
		existing.Fields = fields
		existing.UpdatedAt = now
		return existing, true, nil
	}

	sub := Submission{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, case_id, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		sub.ID, caseID, string(fieldsJSON),
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting submission: %w", err)
	}
	return &sub, false, nil
}

// GetSubmission retrieves the submission linked to a case. Returns nil if
// the case has no submission.
func (s *Store) GetSubmission(ctx context.Context, caseID string) (*Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, fields, created_at, updated_at
		FROM submissions WHERE case_id = ?`, caseID)

	var sub Submission
	var fieldsJSON, createdAt, updatedAt string
	err := row.Scan(&sub.ID, &sub.CaseID, &fieldsJSON, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning submission: %w", err)
	}
	sub.Fields = payload.FromJSON([]byte(fieldsJSON))
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)
	return &sub, nil
}

// AddAttachment records one evidence item on a case.
func (s *Store) AddAttachment(ctx context.Context, a Attachment) (*Attachment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	verified := 0
	if a.Verified {
		verified = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, case_id, class, filename, content_type, size_bytes, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CaseID, a.Class, a.Filename, a.ContentType, a.SizeBytes,
		verified, a.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting attachment: %w", err)
	}
	return &a, nil
}

// ListAttachments returns a case's attachments, oldest first.
func (s *Store) ListAttachments(ctx context.Context, caseID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, class, filename, content_type, size_bytes, verified, created_at
		FROM attachments WHERE case_id = ? ORDER BY created_at ASC, id ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		var verified int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.CaseID, &a.Class, &a.Filename, &a.ContentType,
			&a.SizeBytes, &verified, &createdAt); err != nil {
			return nil, err
		}
		a.Verified = verified != 0
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddEvent appends an entry to a case's timeline. The zero OccurredAt
// defaults to now.
func (s *Store) AddEvent(ctx context.Context, e Event) (*Event, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO case_events (id, case_id, event_type, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CaseID, string(e.EventType), e.Detail, e.OccurredAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting case event: %w", err)
	}
	return &e, nil
}

// ListEvents returns a case's timeline, oldest first.
func (s *Store) ListEvents(ctx context.Context, caseID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, event_type, detail, occurred_at
		FROM case_events WHERE case_id = ? ORDER BY occurred_at ASC, id ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("listing case events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var eventType, occurredAt string
		if err := rows.Scan(&e.ID, &e.CaseID, &eventType, &e.Detail, &occurredAt); err != nil {
			return nil, err
		}
		e.EventType = EventType(eventType)
		e.OccurredAt = parseTime(occurredAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
