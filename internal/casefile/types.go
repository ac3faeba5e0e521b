// Package casefile holds the case, submission, attachment, and timeline
// records the intelligence engine reads its artifacts from.
package casefile

import (
	"time"

	"casewise/internal/payload"
)

// Status is the lifecycle status of a case.
type Status string

const (
	StatusOpen     Status = "open"
	StatusInReview Status = "in_review"
	StatusDecided  Status = "decided"
	StatusClosed   Status = "closed"
)

// EventType identifies a timeline event on a case.
type EventType string

const (
	EventCaseCreated        EventType = "case_created"
	EventStatusChanged      EventType = "status_changed"
	EventRequestInfoCreated EventType = "request_info_created"
	EventRequestInfoClosed  EventType = "request_info_closed"
	EventSubmitterResponded EventType = "submitter_responded"
	EventNoteAdded          EventType = "note_added"
	EventDecisionRecorded   EventType = "decision_recorded"
)

// Case is one licensing review case.
type Case struct {
	ID           string    `json:"id"`
	DecisionType string    `json:"decision_type"`
	Status       Status    `json:"status"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Submission is the applicant-provided form linked to a case. Fields is a
// schema-less key/value map; field semantics are owned by the decision type.
type Submission struct {
	ID        string        `json:"id"`
	CaseID    string        `json:"case_id"`
	Fields    payload.Value `json:"fields"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Attachment is one evidence item attached to a case.
type Attachment struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	Class       string    `json:"class"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is one entry on a case's timeline.
type Event struct {
	ID         string    `json:"id"`
	CaseID     string    `json:"case_id"`
	EventType  EventType `json:"event_type"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}
