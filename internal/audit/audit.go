// Package audit records who did what to a case and why a recompute ran.
// The trail is append-only; retention is the only path that removes rows.
package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorAgent  ActorType = "agent"
)

// Action describes what was done.
type Action string

const (
	ActionRecomputeCompleted Action = "recompute_completed"
	ActionRecomputeCoalesced Action = "recompute_coalesced"
	ActionRecomputeFailed    Action = "recompute_failed"
	ActionExportGenerated    Action = "export_generated"
	ActionRetentionApplied   Action = "retention_applied"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorType ActorType `json:"actor_type"`
	ActorRole string    `json:"actor_role,omitempty"`
	Action    Action    `json:"action"`
	CaseID    string    `json:"case_id,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Summary   string    `json:"summary"`
	Detail    string    `json:"detail,omitempty"`
}
