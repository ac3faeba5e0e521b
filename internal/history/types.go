// Package history keeps the append-only record of past intelligence
// computations: what was computed, the evidence state it saw, and a hash
// that proves whether the evidence changed between two runs.
package history

import (
	"time"

	"casewise/internal/payload"
)

// Record is one appended history row. EvidenceSnapshot and
// IntelligencePayload may be null after retention has run; the hash and
// score columns are kept forever.
type Record struct {
	ID                  string        `json:"id"`
	CaseID              string        `json:"case_id"`
	ComputedAt          time.Time     `json:"computed_at"`
	ConfidenceScore     float64       `json:"confidence_score"`
	ConfidenceBand      string        `json:"confidence_band"`
	RulesPassed         int           `json:"rules_passed"`
	RulesTotal          int           `json:"rules_total"`
	GapCount            int           `json:"gap_count"`
	BiasCount           int           `json:"bias_count"`
	Trigger             string        `json:"trigger"`
	ActorRole           string        `json:"actor_role,omitempty"`
	EvidenceSnapshot    payload.Value `json:"evidence_snapshot"`
	EvidenceHash        string        `json:"evidence_hash"`
	IntelligencePayload payload.Value `json:"intelligence_payload"`
	TraceID             string        `json:"trace_id,omitempty"`
	SpanID              string        `json:"span_id,omitempty"`
}
