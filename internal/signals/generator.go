package signals

import (
	"strconv"

	"github.com/google/uuid"

	"casewise/internal/casefile"
	"casewise/internal/fieldcheck"
)

// Generate projects a case's current artifacts into its signal set. It is
// a pure projection: no network calls, no inference, and the output order
// is fixed (submission, evidence, events, traces). Strengths are
// normalized to [0,1].
func Generate(c casefile.Case, sub *casefile.Submission, atts []casefile.Attachment, events []casefile.Event) []Signal {
	var out []Signal

	emit := func(s Signal) {
		s.ID = uuid.NewString()
		s.CaseID = c.ID
		s.DecisionType = c.DecisionType
		out = append(out, s)
	}

	if sub != nil {
		emit(Signal{
			SignalType: TypeSubmissionPresent,
			SourceType: SourceSubmission,
			Strength:   1.0,
			Complete:   true,
			ObservedAt: sub.UpdatedAt,
		})

		fraction, present, total := completeness(c.DecisionType, sub)
		emit(Signal{
			SignalType: TypeSubmissionCompleteness,
			SourceType: SourceSubmission,
			Strength:   fraction,
			Complete:   fraction >= 1.0,
			ObservedAt: sub.UpdatedAt,
			Metadata: map[string]string{
				"fields_present":  strconv.Itoa(present),
				"fields_expected": strconv.Itoa(total),
			},
		})
	}

	// One evidence signal per attachment class, in first-seen order.
	// A verified item anywhere in the class lifts its strength.
	var classOrder []string
	byClass := map[string][]casefile.Attachment{}
	for _, a := range atts {
		if _, seen := byClass[a.Class]; !seen {
			classOrder = append(classOrder, a.Class)
		}
		byClass[a.Class] = append(byClass[a.Class], a)
	}
	for _, class := range classOrder {
		group := byClass[class]
		strength := 0.8
		for _, a := range group {
			if a.Verified {
				strength = 1.0
				break
			}
		}
		latest := group[0].CreatedAt
		for _, a := range group[1:] {
			if a.CreatedAt.After(latest) {
				latest = a.CreatedAt
			}
		}
		emit(Signal{
			SignalType: TypeEvidencePresent,
			SourceType: SourceEvidence,
			Strength:   strength,
			Complete:   true,
			ObservedAt: latest,
			Metadata: map[string]string{
				"class": class,
				"count": strconv.Itoa(len(group)),
			},
		})
	}

	if len(events) > 0 {
		last := events[len(events)-1]
		strength := float64(len(events)) / 4
		if strength > 1.0 {
			strength = 1.0
		}
		emit(Signal{
			SignalType: TypeCaseActivity,
			SourceType: SourceEvent,
			Strength:   strength,
			Complete:   true,
			ObservedAt: last.OccurredAt,
			Metadata:   map[string]string{"events": strconv.Itoa(len(events))},
		})
	}

	// An information request is open when the latest request_info event is
	// a creation without a later close.
	openRFI := -1
	for i, e := range events {
		switch e.EventType {
		case casefile.EventRequestInfoCreated:
			openRFI = i
		case casefile.EventRequestInfoClosed:
			openRFI = -1
		}
	}
	if openRFI >= 0 {
		emit(Signal{
			SignalType: TypeRequestInfoOpen,
			SourceType: SourceEvent,
			Strength:   1.0,
			Complete:   false,
			ObservedAt: events[openRFI].OccurredAt,
		})
	}

	for _, e := range events {
		if e.EventType == casefile.EventSubmitterResponded {
			emit(Signal{
				SignalType: TypeSubmitterResponded,
				SourceType: SourceEvent,
				Strength:   1.0,
				Complete:   true,
				ObservedAt: e.OccurredAt,
			})
			break
		}
	}

	for _, e := range events {
		if e.EventType == casefile.EventDecisionRecorded {
			emit(Signal{
				SignalType: TypeDecisionTrace,
				SourceType: SourceTrace,
				Strength:   1.0,
				Complete:   true,
				ObservedAt: e.OccurredAt,
				Metadata:   map[string]string{"outcome": e.Detail},
			})
		}
	}

	return out
}

// completeness scores the fraction of the decision type's required fields
// that carry usable values. Placeholder values count as absent.
func completeness(decisionType string, sub *casefile.Submission) (fraction float64, present, total int) {
	expected := fieldcheck.ExpectedFields(decisionType)
	if len(expected) == 0 {
		return 1.0, 0, 0
	}
	for _, field := range expected {
		if fieldcheck.HasValue(sub.Fields.Get(field)) {
			present++
		}
	}
	return float64(present) / float64(len(expected)), present, len(expected)
}
