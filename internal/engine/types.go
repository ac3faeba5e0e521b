// Package engine orchestrates the intelligence pipeline: it reads a
// case's artifacts once, runs signal generation, field checks, rule
// evaluation, gap and bias detection, scoring, and narrative rendering,
// then persists the result, one history row, and one audit entry per run.
package engine

import (
	"time"

	"casewise/internal/bias"
	"casewise/internal/fieldcheck"
	"casewise/internal/gaps"
	"casewise/internal/narrative"
	"casewise/internal/rules"
	"casewise/internal/scoring"
	"casewise/internal/signals"
)

// Diagnosis explains anomalies in a computed snapshot.
const (
	DiagnosisOK              = "ok"
	DiagnosisNoSignals       = "no_signals"
	DiagnosisScoreDivergence = "score_divergence"
)

// divergenceLimit is the largest primary-vs-rules score spread treated as
// normal disagreement.
const divergenceLimit = 25.0

// Intelligence is the current decision intelligence snapshot for a case.
// IsStale and StaleAfterMinutes are derived at read time, never stored.
type Intelligence struct {
	CaseID             string              `json:"case_id"`
	DecisionType       string              `json:"decision_type"`
	ComputedAt         time.Time           `json:"computed_at"`
	CompletenessScore  float64             `json:"completeness_score"`
	ConfidenceScore    float64             `json:"confidence_score"`
	ConfidenceBand     scoring.Band        `json:"confidence_band"`
	RulesConfidence    float64             `json:"rules_confidence"`
	RulesBand          scoring.Band        `json:"rules_band"`
	RulesPassed        int                 `json:"rules_passed"`
	RulesTotal         int                 `json:"rules_total"`
	Diagnosis          string              `json:"diagnosis"`
	Signals            []signals.Signal    `json:"signals"`
	Gaps               []gaps.Gap          `json:"gaps"`
	BiasFlags          []bias.Flag         `json:"bias_flags"`
	FieldIssues        []fieldcheck.Issue  `json:"field_issues"`
	RuleResults        []rules.RuleResult  `json:"rule_results"`
	ExplanationFactors []scoring.Factor    `json:"explanation_factors"`
	Narrative          narrative.Summary   `json:"narrative"`
	ExecutiveSummary   string              `json:"executive_summary"`
	IsStale            bool                `json:"is_stale"`
	StaleAfterMinutes  int                 `json:"stale_after_minutes"`
}

// Outcome reports what a recompute request actually did.
type Outcome struct {
	// Status is computed, scheduled, coalesced, or recovered.
	Status       string        `json:"status"`
	Intelligence *Intelligence `json:"intelligence,omitempty"`
}

const (
	// StatusComputed means the pipeline ran and produced a fresh snapshot.
	StatusComputed = "computed"
	// StatusScheduled means the run was queued behind the debounce window.
	StatusScheduled = "scheduled"
	// StatusCoalesced means the trigger merged into an already-pending run.
	StatusCoalesced = "coalesced"
	// StatusRecovered means the run failed and the prior snapshot stands.
	StatusRecovered = "recovered"
)
