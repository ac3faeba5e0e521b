package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"casewise/internal/db"
	"casewise/internal/scoring"
)

// Store persists the current intelligence snapshot per case. History is a
// separate append-only table; this one holds only the latest state.
type Store struct {
	db *db.DB
}

// NewStore creates an intelligence store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert writes the snapshot, replacing any previous one for the case.
func (s *Store) Upsert(ctx context.Context, intel *Intelligence) error {
	cols := map[string]any{}
	for name, v := range map[string]any{
		"gaps":                intel.Gaps,
		"bias_flags":          intel.BiasFlags,
		"field_issues":        intel.FieldIssues,
		"rule_results":        intel.RuleResults,
		"explanation_factors": intel.ExplanationFactors,
		"narrative":           intel.Narrative,
		"badges":              intel.Narrative.Badges,
		"signals":             intel.Signals,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling %s: %w", name, err)
		}
		cols[name] = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_intelligence (
			case_id, decision_type, computed_at, completeness_score,
			confidence_score, confidence_band, rules_confidence, rules_band,
			rules_passed, rules_total, diagnosis, gaps, bias_flags,
			field_issues, rule_results, explanation_factors, narrative,
			executive_summary, badges, signals
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			decision_type = excluded.decision_type,
			computed_at = excluded.computed_at,
			completeness_score = excluded.completeness_score,
			confidence_score = excluded.confidence_score,
			confidence_band = excluded.confidence_band,
			rules_confidence = excluded.rules_confidence,
			rules_band = excluded.rules_band,
			rules_passed = excluded.rules_passed,
			rules_total = excluded.rules_total,
			diagnosis = excluded.diagnosis,
			gaps = excluded.gaps,
			bias_flags = excluded.bias_flags,
			field_issues = excluded.field_issues,
			rule_results = excluded.rule_results,
			explanation_factors = excluded.explanation_factors,
			narrative = excluded.narrative,
			executive_summary = excluded.executive_summary,
			badges = excluded.badges,
			signals = excluded.signals`,
		intel.CaseID, intel.DecisionType, intel.ComputedAt.UTC().Format(time.DateTime),
		intel.CompletenessScore, intel.ConfidenceScore, string(intel.ConfidenceBand),
		intel.RulesConfidence, string(intel.RulesBand), intel.RulesPassed, intel.RulesTotal,
		intel.Diagnosis, cols["gaps"], cols["bias_flags"], cols["field_issues"],
		cols["rule_results"], cols["explanation_factors"], cols["narrative"],
		intel.ExecutiveSummary, cols["badges"], cols["signals"],
	)
	if err != nil {
		return fmt.Errorf("upserting intelligence: %w", err)
	}
	return nil
}

// Get returns the current snapshot for a case, or nil when none exists.
func (s *Store) Get(ctx context.Context, caseID string) (*Intelligence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT case_id, decision_type, computed_at, completeness_score,
			   confidence_score, confidence_band, rules_confidence, rules_band,
			   rules_passed, rules_total, diagnosis, gaps, bias_flags,
			   field_issues, rule_results, explanation_factors, narrative,
			   executive_summary, signals
		FROM decision_intelligence WHERE case_id = ?`, caseID)

	var (
		intel                                       Intelligence
		computedAt, band, rulesBand                 string
		gapsJSON, flagsJSON, issuesJSON, rulesJSON  string
		factorsJSON, narrativeJSON, signalsJSON     string
	)
	err := row.Scan(
		&intel.CaseID, &intel.DecisionType, &computedAt, &intel.CompletenessScore,
		&intel.ConfidenceScore, &band, &intel.RulesConfidence, &rulesBand,
		&intel.RulesPassed, &intel.RulesTotal, &intel.Diagnosis, &gapsJSON,
		&flagsJSON, &issuesJSON, &rulesJSON, &factorsJSON, &narrativeJSON,
		&intel.ExecutiveSummary, &signalsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading intelligence: %w", err)
	}

	intel.ConfidenceBand = scoring.Band(band)
	intel.RulesBand = scoring.Band(rulesBand)
	if t, parseErr := time.Parse(time.DateTime, computedAt); parseErr == nil {
		intel.ComputedAt = t.UTC()
	}

	for _, pair := range []struct {
		raw  string
		dest any
	}{
		{gapsJSON, &intel.Gaps},
		{flagsJSON, &intel.BiasFlags},
		{issuesJSON, &intel.FieldIssues},
		{rulesJSON, &intel.RuleResults},
		{factorsJSON, &intel.ExplanationFactors},
		{narrativeJSON, &intel.Narrative},
		{signalsJSON, &intel.Signals},
	} {
		if pair.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw), pair.dest); err != nil {
			return nil, fmt.Errorf("decoding intelligence column: %w", err)
		}
	}
	return &intel, nil
}
