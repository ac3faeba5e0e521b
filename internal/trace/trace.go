// Package trace carries lightweight trace and span identifiers through a
// recompute and persists finished spans for later inspection. Span writes
// are best-effort: a failed insert never fails the operation being traced.
package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"casewise/internal/db"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	spanIDKey
)

// NewTrace attaches a fresh trace ID to the context, returning the new
// context and the ID.
func NewTrace(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(ctx, traceIDKey, id), id
}

// TraceID returns the trace ID on the context, or "" when absent.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// SpanID returns the current span ID on the context, or "" when absent.
func SpanID(ctx context.Context) string {
	id, _ := ctx.Value(spanIDKey).(string)
	return id
}

// Span is one recorded unit of work inside a trace.
type Span struct {
	SpanID       string            `json:"span_id"`
	TraceID      string            `json:"trace_id"`
	ParentSpanID string            `json:"parent_span_id,omitempty"`
	CaseID       string            `json:"case_id,omitempty"`
	Name         string            `json:"span_name"`
	Kind         string            `json:"span_kind"`
	StartedAt    time.Time         `json:"started_at"`
	Duration     time.Duration     `json:"duration"`
	Err          string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Store persists finished spans.
type Store struct {
	db *db.DB
}

// NewStore creates a span store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// ActiveSpan is an open span; call End exactly once.
type ActiveSpan struct {
	store *Store
	span  Span
	start time.Time
}

// Start opens a span under the context's trace, returning a context with
// the new span as current. With no trace on the context a fresh one is
// started.
func (s *Store) Start(ctx context.Context, name, caseID string) (context.Context, *ActiveSpan) {
	if TraceID(ctx) == "" {
		ctx, _ = NewTrace(ctx)
	}
	now := time.Now().UTC()
	sp := &ActiveSpan{
		store: s,
		start: now,
		span: Span{
			SpanID:       uuid.NewString(),
			TraceID:      TraceID(ctx),
			ParentSpanID: SpanID(ctx),
			CaseID:       caseID,
			Name:         name,
			Kind:         "internal",
			StartedAt:    now,
		},
	}
	return context.WithValue(ctx, spanIDKey, sp.span.SpanID), sp
}

// Annotate attaches a metadata key to the span.
func (a *ActiveSpan) Annotate(key, value string) {
	if a.span.Metadata == nil {
		a.span.Metadata = map[string]string{}
	}
	a.span.Metadata[key] = value
}

// End closes the span and persists it. Persistence errors are logged and
// swallowed.
func (a *ActiveSpan) End(ctx context.Context, opErr error) {
	a.span.Duration = time.Since(a.start)
	if opErr != nil {
		a.span.Err = opErr.Error()
	}
	if err := a.store.insert(ctx, a.span); err != nil {
		log.Printf("trace: dropping span %s: %v", a.span.Name, err)
	}
}

func (s *Store) insert(ctx context.Context, sp Span) error {
	meta := "{}"
	if len(sp.Metadata) > 0 {
		b, err := json.Marshal(sp.Metadata)
		if err != nil {
			return err
		}
		meta = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trace_spans (span_id, trace_id, parent_span_id, case_id, span_name, span_kind, started_at, duration_us, error_text, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.SpanID, sp.TraceID, nullable(sp.ParentSpanID), nullable(sp.CaseID),
		sp.Name, sp.Kind, sp.StartedAt.Format(time.DateTime),
		sp.Duration.Microseconds(), nullable(sp.Err), meta,
	)
	return err
}

// ListByTrace returns a trace's spans in start order.
func (s *Store) ListByTrace(ctx context.Context, traceID string) ([]Span, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT span_id, trace_id, parent_span_id, case_id, span_name, span_kind, started_at, duration_us, error_text, metadata
		FROM trace_spans WHERE trace_id = ? ORDER BY started_at, span_id`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Span
	for rows.Next() {
		var sp Span
		var parent, caseID, errText sql.NullString
		var startedAt, meta string
		var durUS int64
		if err := rows.Scan(&sp.SpanID, &sp.TraceID, &parent, &caseID, &sp.Name, &sp.Kind, &startedAt, &durUS, &errText, &meta); err != nil {
			return nil, err
		}
		sp.ParentSpanID = parent.String
		sp.CaseID = caseID.String
		sp.Err = errText.String
		sp.Duration = time.Duration(durUS) * time.Microsecond
		if t, err := time.Parse(time.DateTime, startedAt); err == nil {
			sp.StartedAt = t.UTC()
		}
		if meta != "" && meta != "{}" {
			_ = json.Unmarshal([]byte(meta), &sp.Metadata)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
