// Package gaps diffs a case's actual signals against its decision type's
// expectation set.
package gaps

import (
	"fmt"
	"time"

	"casewise/internal/expectations"
	"casewise/internal/signals"
)

// GapType classifies the shortfall between an expected and actual signal.
type GapType string

const (
	GapMissing GapType = "missing"
	GapPartial GapType = "partial"
	GapWeak    GapType = "weak"
	GapStale   GapType = "stale"
)

// Severity ranks a gap's impact.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Gap is one detected expectation shortfall. Gaps are derived per run and
// only persisted inside an intelligence snapshot.
type Gap struct {
	GapType           GapType  `json:"gap_type"`
	Severity          Severity `json:"severity"`
	SignalType        string   `json:"signal_type"`
	Message           string   `json:"message"`
	ExpectedThreshold float64  `json:"expected_threshold"`
}

// Detect emits at most one gap per expected signal. Classification order
// is a fixed tie-break: missing, then weak, then partial, then stale —
// a signal that is both weak and partial is reported weak.
func Detect(now time.Time, expected []expectations.ExpectedSignal, set []signals.Signal) []Gap {
	var out []Gap

	for _, exp := range expected {
		match := bestMatch(set, exp.SignalType)

		if match == nil {
			sev := SeverityMedium
			if exp.Required {
				sev = SeverityHigh
			}
			out = append(out, Gap{
				GapType:           GapMissing,
				Severity:          sev,
				SignalType:        exp.SignalType,
				Message:           fmt.Sprintf("expected signal %q was not observed", exp.SignalType),
				ExpectedThreshold: exp.MinStrength,
			})
			continue
		}

		if match.Strength < exp.MinStrength {
			sev := SeverityLow
			if exp.Required {
				sev = SeverityMedium
			}
			out = append(out, Gap{
				GapType:           GapWeak,
				Severity:          sev,
				SignalType:        exp.SignalType,
				Message:           fmt.Sprintf("signal %q strength %.2f is below the %.2f threshold", exp.SignalType, match.Strength, exp.MinStrength),
				ExpectedThreshold: exp.MinStrength,
			})
			continue
		}

		if !match.Complete {
			out = append(out, Gap{
				GapType:           GapPartial,
				Severity:          SeverityLow,
				SignalType:        exp.SignalType,
				Message:           fmt.Sprintf("signal %q is present but incomplete", exp.SignalType),
				ExpectedThreshold: exp.MinStrength,
			})
			continue
		}

		if exp.MaxAgeHours > 0 {
			age := now.Sub(match.ObservedAt)
			if age > time.Duration(exp.MaxAgeHours)*time.Hour {
				sev := SeverityLow
				if exp.Required {
					sev = SeverityMedium
				}
				out = append(out, Gap{
					GapType:           GapStale,
					Severity:          sev,
					SignalType:        exp.SignalType,
					Message:           fmt.Sprintf("signal %q is older than %dh", exp.SignalType, exp.MaxAgeHours),
					ExpectedThreshold: exp.MinStrength,
				})
			}
		}
	}

	return out
}

// bestMatch returns the strongest signal of the given type; ties keep the
// earliest emitted.
func bestMatch(set []signals.Signal, signalType string) *signals.Signal {
	var best *signals.Signal
	for i := range set {
		if set[i].SignalType != signalType {
			continue
		}
		if best == nil || set[i].Strength > best.Strength {
			best = &set[i]
		}
	}
	return best
}

// severityWeights feed the gap severity score.
var severityWeights = map[Severity]float64{
	SeverityHigh:   15,
	SeverityMedium: 8,
	SeverityLow:    3,
}

// SeverityScore sums per-gap weights, capped at 100.
func SeverityScore(gs []Gap) float64 {
	var total float64
	for _, g := range gs {
		total += severityWeights[g.Severity]
	}
	if total > 100 {
		return 100
	}
	return total
}
