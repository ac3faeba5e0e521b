// Package bias runs population-level heuristics over a case's signal set,
// flagging diversity and contradiction problems a per-signal view misses.
package bias

import (
	"fmt"
	"sort"
	"time"

	"casewise/internal/signals"
)

// FlagType identifies one bias heuristic.
type FlagType string

const (
	FlagSingleSource  FlagType = "single_source_reliance"
	FlagLowDiversity  FlagType = "low_diversity"
	FlagContradiction FlagType = "contradiction"
	FlagStaleSignals  FlagType = "stale_signals"
)

// Severity ranks a flag's impact.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Flag is one bias warning, derived per run.
type Flag struct {
	FlagType        FlagType          `json:"flag_type"`
	Severity        Severity          `json:"severity"`
	Message         string            `json:"message"`
	SuggestedAction string            `json:"suggested_action"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Dominance thresholds for single_source_reliance.
const (
	dominanceMedium = 0.70
	dominanceHigh   = 0.85
)

// staleAge is the signal age past which the stale_signals heuristic counts
// a signal.
const staleAge = 72 * time.Hour

// contradictionPairs lists signal types that should not both be strong at
// once.
var contradictionPairs = [][2]string{
	{signals.TypeRequestInfoOpen, signals.TypeSubmitterResponded},
}

// Detect runs every heuristic independently; all may fire at once. The
// result is sorted by flag type so identical signal sets always produce
// identical output.
func Detect(now time.Time, set []signals.Signal) []Flag {
	var out []Flag

	if f := detectSingleSource(set); f != nil {
		out = append(out, *f)
	}
	if f := detectLowDiversity(set); f != nil {
		out = append(out, *f)
	}
	out = append(out, detectContradictions(set)...)
	if f := detectStale(now, set); f != nil {
		out = append(out, *f)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FlagType < out[j].FlagType })
	return out
}

func detectSingleSource(set []signals.Signal) *Flag {
	if len(set) == 0 {
		return nil
	}
	var total float64
	bySource := map[signals.SourceType]float64{}
	for _, s := range set {
		total += s.Strength
		bySource[s.SourceType] += s.Strength
	}
	if total == 0 {
		return nil
	}

	for _, source := range []signals.SourceType{signals.SourceSubmission, signals.SourceEvidence, signals.SourceEvent, signals.SourceTrace} {
		share := bySource[source] / total
		if share <= dominanceMedium {
			continue
		}
		sev := SeverityMedium
		if share > dominanceHigh {
			sev = SeverityHigh
		}
		return &Flag{
			FlagType:        FlagSingleSource,
			Severity:        sev,
			Message:         fmt.Sprintf("%s signals contribute %.0f%% of total signal strength", source, share*100),
			SuggestedAction: "corroborate with evidence from other artifact classes",
			Metadata: map[string]string{
				"source": string(source),
				"share":  fmt.Sprintf("%.2f", share),
			},
		}
	}
	return nil
}

func detectLowDiversity(set []signals.Signal) *Flag {
	if len(set) == 0 {
		return nil
	}
	sources := map[signals.SourceType]bool{}
	for _, s := range set {
		sources[s.SourceType] = true
	}
	if len(sources) >= 3 {
		return nil
	}
	return &Flag{
		FlagType:        FlagLowDiversity,
		Severity:        SeverityMedium,
		Message:         fmt.Sprintf("only %d distinct signal source(s) present", len(sources)),
		SuggestedAction: "request additional evidence or timeline activity before deciding",
		Metadata:        map[string]string{"distinct_sources": fmt.Sprintf("%d", len(sources))},
	}
}

func detectContradictions(set []signals.Signal) []Flag {
	strongest := map[string]float64{}
	for _, s := range set {
		if s.Strength > strongest[s.SignalType] {
			strongest[s.SignalType] = s.Strength
		}
	}

	var out []Flag
	for _, pair := range contradictionPairs {
		if strongest[pair[0]] >= 0.5 && strongest[pair[1]] >= 0.5 {
			out = append(out, Flag{
				FlagType:        FlagContradiction,
				Severity:        SeverityHigh,
				Message:         fmt.Sprintf("signals %q and %q are mutually exclusive but both strong", pair[0], pair[1]),
				SuggestedAction: "reconcile the case timeline before relying on either signal",
				Metadata:        map[string]string{"first": pair[0], "second": pair[1]},
			})
		}
	}
	return out
}

func detectStale(now time.Time, set []signals.Signal) *Flag {
	var stale int
	for _, s := range set {
		if now.Sub(s.ObservedAt) > staleAge {
			stale++
		}
	}
	if stale == 0 {
		return nil
	}
	sev := SeverityLow
	if stale >= 3 {
		sev = SeverityMedium
	}
	return &Flag{
		FlagType:        FlagStaleSignals,
		Severity:        sev,
		Message:         fmt.Sprintf("%d signal(s) are older than 72h", stale),
		SuggestedAction: "refresh case artifacts or confirm nothing has changed",
		Metadata:        map[string]string{"stale_count": fmt.Sprintf("%d", stale)},
	}
}
