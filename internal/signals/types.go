// Package signals turns raw case artifacts into normalized, strength-scored
// observations. Signals are immutable once written; a recompute supersedes
// the case's prior set rather than mutating it.
package signals

import "time"

// SourceType identifies the artifact class a signal was derived from.
type SourceType string

const (
	SourceSubmission SourceType = "submission"
	SourceEvidence   SourceType = "evidence"
	SourceEvent      SourceType = "event"
	SourceTrace      SourceType = "trace"
)

// Well-known signal types emitted by the generator.
const (
	TypeSubmissionPresent      = "submission_present"
	TypeSubmissionCompleteness = "submission_completeness"
	TypeEvidencePresent        = "evidence_present"
	TypeCaseActivity           = "case_activity"
	TypeRequestInfoOpen        = "request_info_open"
	TypeSubmitterResponded     = "submitter_responded"
	TypeDecisionTrace          = "decision_trace"
)

// Signal is one normalized observation about a case. Strength is always
// within [0,1].
type Signal struct {
	ID           string            `json:"id"`
	CaseID       string            `json:"case_id"`
	DecisionType string            `json:"decision_type"`
	SignalType   string            `json:"signal_type"`
	SourceType   SourceType        `json:"source_type"`
	Strength     float64           `json:"strength"`
	Complete     bool              `json:"complete"`
	ObservedAt   time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
