package history

import (
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"casewise/internal/payload"
)

// Redactor implements safe-mode output: an allow-list of glob patterns
// over dotted field paths. Keys are never removed; values whose path
// matches no pattern are nulled, which makes redaction idempotent.
type Redactor struct {
	patterns []string
}

// DefaultAllowPatterns keeps scores, classifications, and structural
// metadata while nulling free text and submitted values.
var DefaultAllowPatterns = []string{
	"case_id",
	"decision_type",
	"computed_at",
	"confidence_*",
	"completeness_score",
	"rules_*",
	"diagnosis",
	"is_stale",
	"stale_after_minutes",
	"gaps.*.gap_type",
	"gaps.*.severity",
	"gaps.*.signal_type",
	"bias_flags.*.flag_type",
	"bias_flags.*.severity",
	"field_issues.*.field",
	"field_issues.*.severity",
	"field_issues.*.check",
	"rule_results.*.rule_id",
	"rule_results.*.passed",
	"rule_results.*.severity",
	"explanation_factors.*.factor",
	"explanation_factors.*.impact",
	"narrative.badges.**",
	"signals.*.signal_type",
	"signals.*.source_type",
	"signals.*.strength",
	"signals.*.complete",
	"submission.field_kinds.**",
	"attachments.*.class",
	"attachments.*.verified",
	"attachments.*.size_bytes",
	"event_counts.**",
}

// NewRedactor builds a redactor from dotted glob patterns. Patterns use
// doublestar syntax with "." as the segment separator ("gaps.*.severity",
// "narrative.badges.**").
func NewRedactor(patterns []string) *Redactor {
	if len(patterns) == 0 {
		patterns = DefaultAllowPatterns
	}
	converted := make([]string, len(patterns))
	for i, p := range patterns {
		converted[i] = strings.ReplaceAll(p, ".", "/")
	}
	return &Redactor{patterns: converted}
}

// Apply returns the value with every non-allowed leaf nulled.
func (r *Redactor) Apply(v payload.Value) payload.Value {
	out, _ := r.Redact(v)
	return out
}

// Redact is Apply plus a count of the leaves it nulled.
func (r *Redactor) Redact(v payload.Value) (payload.Value, int) {
	count := 0
	out := r.walk("", v, &count)
	return out, count
}

func (r *Redactor) walk(path string, v payload.Value, count *int) payload.Value {
	switch v.Kind() {
	case payload.KindMap:
		out := map[string]payload.Value{}
		for _, key := range v.Keys() {
			out[key] = r.walk(join(path, key), v.Get(key), count)
		}
		return payload.Map(out)
	case payload.KindList:
		items := make([]payload.Value, 0, v.Len())
		for i, item := range v.Items() {
			items = append(items, r.walk(join(path, strconv.Itoa(i)), item, count))
		}
		return payload.List(items...)
	default:
		if r.allowed(path) {
			return v
		}
		if !v.IsNull() {
			*count++
		}
		return payload.Null()
	}
}

func (r *Redactor) allowed(path string) bool {
	for _, pat := range r.patterns {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}

func join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "/" + seg
}
