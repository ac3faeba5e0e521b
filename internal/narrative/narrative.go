// Package narrative renders an intelligence snapshot into reviewer-facing
// text. Output is template-based and fully deterministic: the same
// snapshot always yields the same words.
package narrative

import (
	"fmt"
	"sort"

	"casewise/internal/bias"
	"casewise/internal/gaps"
	"casewise/internal/scoring"
	"casewise/internal/signals"
)

// Tone classifies a badge for display.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneWarning  Tone = "warning"
	ToneNegative Tone = "negative"
)

// Badge is a short display chip summarizing one aspect of the snapshot.
type Badge struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
}

// Summary is the reviewer-facing rendering of a snapshot. Each list holds
// at most three entries.
type Summary struct {
	Headline  string   `json:"headline"`
	Positives []string `json:"positives"`
	Unknowns  []string `json:"unknowns"`
	Risks     []string `json:"risks"`
	Actions   []string `json:"actions"`
	Badges    []Badge  `json:"badges"`
}

const maxItems = 3

// signalPhrases maps known signal types to reviewer language. Unknown
// types fall back to a generic phrase.
var signalPhrases = map[string]string{
	signals.TypeSubmissionPresent:      "a submission is on file",
	signals.TypeSubmissionCompleteness: "the submission form is filled in",
	signals.TypeEvidencePresent:        "supporting evidence is attached",
	signals.TypeCaseActivity:           "the case timeline shows recent activity",
	signals.TypeSubmitterResponded:     "the submitter has responded to information requests",
	signals.TypeDecisionTrace:          "a prior decision trace exists for this case",
}

// Build assembles the summary from the computed snapshot parts.
func Build(decisionType string, score scoring.Result, set []signals.Signal, gs []gaps.Gap, flags []bias.Flag) Summary {
	return Summary{
		Headline:  fmt.Sprintf("Confidence is %s (%.0f) for this %s case.", score.Band, score.Score, decisionType),
		Positives: positives(set),
		Unknowns:  unknowns(gs),
		Risks:     risks(gs, flags),
		Actions:   actions(gs, flags),
		Badges:    badges(score, gs, flags),
	}
}

func positives(set []signals.Signal) []string {
	strong := make([]signals.Signal, 0, len(set))
	for _, s := range set {
		if s.Complete && s.Strength >= 0.5 {
			strong = append(strong, s)
		}
	}
	sort.SliceStable(strong, func(i, j int) bool {
		if strong[i].Strength != strong[j].Strength {
			return strong[i].Strength > strong[j].Strength
		}
		return strong[i].SignalType < strong[j].SignalType
	})

	var out []string
	seen := map[string]bool{}
	for _, s := range strong {
		if seen[s.SignalType] {
			continue
		}
		seen[s.SignalType] = true
		phrase, ok := signalPhrases[s.SignalType]
		if !ok {
			phrase = fmt.Sprintf("signal %q is strong", s.SignalType)
		}
		out = append(out, phrase)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

var severityRank = map[gaps.Severity]int{
	gaps.SeverityHigh:   0,
	gaps.SeverityMedium: 1,
	gaps.SeverityLow:    2,
}

func unknowns(gs []gaps.Gap) []string {
	sorted := append([]gaps.Gap(nil), gs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if severityRank[sorted[i].Severity] != severityRank[sorted[j].Severity] {
			return severityRank[sorted[i].Severity] < severityRank[sorted[j].Severity]
		}
		return sorted[i].SignalType < sorted[j].SignalType
	})

	var out []string
	for _, g := range sorted {
		out = append(out, g.Message)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

func risks(gs []gaps.Gap, flags []bias.Flag) []string {
	var out []string
	for _, f := range flags {
		out = append(out, f.Message)
		if len(out) == maxItems {
			return out
		}
	}
	for _, g := range gs {
		if g.Severity != gaps.SeverityHigh {
			continue
		}
		out = append(out, g.Message)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

func actions(gs []gaps.Gap, flags []bias.Flag) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if s == "" || seen[s] || len(out) == maxItems {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, g := range gs {
		if g.GapType == gaps.GapMissing && g.Severity == gaps.SeverityHigh {
			add(fmt.Sprintf("obtain the missing %s evidence", g.SignalType))
		}
	}
	for _, f := range flags {
		add(f.SuggestedAction)
	}
	for _, g := range gs {
		if g.GapType == gaps.GapStale {
			add(fmt.Sprintf("refresh the stale %s signal", g.SignalType))
		}
	}

	if len(out) == 0 {
		out = append(out, "proceed to decision review")
	}
	return out
}

func badges(score scoring.Result, gs []gaps.Gap, flags []bias.Flag) []Badge {
	var out []Badge

	switch score.Band {
	case scoring.BandHigh:
		out = append(out, Badge{Label: "high confidence", Tone: TonePositive})
	case scoring.BandMedium:
		out = append(out, Badge{Label: "medium confidence", Tone: ToneWarning})
	default:
		out = append(out, Badge{Label: "low confidence", Tone: ToneNegative})
	}

	if len(gs) == 0 {
		out = append(out, Badge{Label: "expectations met", Tone: TonePositive})
	} else {
		out = append(out, Badge{Label: fmt.Sprintf("%d gap(s)", len(gs)), Tone: ToneWarning})
	}

	for _, f := range flags {
		switch f.FlagType {
		case bias.FlagContradiction:
			out = append(out, Badge{Label: "contradictory timeline", Tone: ToneNegative})
		case bias.FlagSingleSource, bias.FlagLowDiversity:
			out = append(out, Badge{Label: "needs corroboration", Tone: ToneWarning})
		case bias.FlagStaleSignals:
			out = append(out, Badge{Label: "stale evidence", Tone: ToneWarning})
		}
	}

	// The two diversity flags share a badge; drop duplicates.
	seen := map[string]bool{}
	dedup := out[:0]
	for _, b := range out {
		if seen[b.Label] {
			continue
		}
		seen[b.Label] = true
		dedup = append(dedup, b)
	}
	return dedup
}
