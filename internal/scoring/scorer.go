// Package scoring combines signal strength with gap, bias, and field-issue
// penalties into a single explainable confidence score.
package scoring

import (
	"fmt"

	"casewise/internal/bias"
	"casewise/internal/fieldcheck"
	"casewise/internal/gaps"
	"casewise/internal/signals"
)

// Band is the coarse confidence bucket derived from the numeric score.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor maps a 0-100 score to its band.
func BandFor(score float64) Band {
	switch {
	case score >= 80:
		return BandHigh
	case score >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

// Factor is one itemized contribution to the final score. Impacts are
// additive: summing them from zero reproduces the score exactly.
type Factor struct {
	Factor string  `json:"factor"`
	Impact float64 `json:"impact"`
	Detail string  `json:"detail"`
}

// Result is the scorer's output.
type Result struct {
	Score   float64  `json:"confidence_score"`
	Band    Band     `json:"confidence_band"`
	Factors []Factor `json:"explanation_factors"`
}

// Per-item penalty weights.
var (
	gapPenalties = map[gaps.Severity]float64{
		gaps.SeverityHigh:   8,
		gaps.SeverityMedium: 4,
		gaps.SeverityLow:    1.5,
	}
	biasPenalties = map[bias.Severity]float64{
		bias.SeverityHigh:   6,
		bias.SeverityMedium: 3,
		bias.SeverityLow:    1,
	}
	issuePenalties = map[fieldcheck.Severity]float64{
		fieldcheck.SeverityCritical: 10,
		fieldcheck.SeverityMedium:   4,
		fieldcheck.SeverityLow:      1,
	}
)

// Score computes the primary confidence score. The base is the weighted
// mean of signal strengths, with incomplete signals contributing at half
// weight; penalties subtract from there and the result is clamped to
// [0,100].
func Score(set []signals.Signal, gs []gaps.Gap, flags []bias.Flag, issues []fieldcheck.Issue) Result {
	var num, den float64
	for _, s := range set {
		w := 1.0
		if !s.Complete {
			w = 0.5
		}
		num += s.Strength * w
		den += w
	}
	base := 0.0
	if den > 0 {
		base = num / den * 100
	}

	var gapPenalty float64
	for _, g := range gs {
		gapPenalty += gapPenalties[g.Severity]
	}
	var biasPenalty float64
	for _, f := range flags {
		biasPenalty += biasPenalties[f.Severity]
	}
	var issuePenalty float64
	for _, i := range issues {
		issuePenalty += issuePenalties[i.Severity]
	}

	raw := base - gapPenalty - biasPenalty - issuePenalty
	final := raw
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}

	factors := []Factor{{
		Factor: "signal_strength",
		Impact: base,
		Detail: fmt.Sprintf("weighted mean strength of %d signal(s)", len(set)),
	}}
	if gapPenalty != 0 {
		factors = append(factors, Factor{
			Factor: "gap_penalty",
			Impact: -gapPenalty,
			Detail: fmt.Sprintf("%d expectation gap(s)", len(gs)),
		})
	}
	if biasPenalty != 0 {
		factors = append(factors, Factor{
			Factor: "bias_penalty",
			Impact: -biasPenalty,
			Detail: fmt.Sprintf("%d bias flag(s)", len(flags)),
		})
	}
	if issuePenalty != 0 {
		factors = append(factors, Factor{
			Factor: "field_issue_penalty",
			Impact: -issuePenalty,
			Detail: fmt.Sprintf("%d field issue(s)", len(issues)),
		})
	}
	if final != raw {
		factors = append(factors, Factor{
			Factor: "clamp_adjustment",
			Impact: final - raw,
			Detail: "score clamped to the 0-100 range",
		})
	}

	return Result{Score: final, Band: BandFor(final), Factors: factors}
}
