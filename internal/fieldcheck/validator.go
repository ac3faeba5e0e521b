package fieldcheck

import (
	"fmt"

	"casewise/internal/payload"
)

// HasValue reports whether a submitted field carries a usable value:
// non-null, non-empty, and not a placeholder. Lists and maps count when
// they have at least one element.
func HasValue(v payload.Value) bool {
	switch v.Kind() {
	case payload.KindString:
		s := v.Str("")
		return s != "" && !IsPlaceholder(s)
	case payload.KindNumber, payload.KindBool:
		return true
	case payload.KindList, payload.KindMap:
		return v.Len() > 0
	default:
		return false
	}
}

// Validate runs the decision type's check list over the submission field
// map and returns every failing check, in declaration order. A nil field
// map (no submission) yields a single critical issue rather than failing
// the pipeline.
func Validate(decisionType string, fields payload.Value) []Issue {
	if fields.IsNull() {
		return []Issue{{
			Field:    "submission",
			Severity: SeverityCritical,
			Check:    "presence",
			Message:  "no submission is linked to this case",
		}}
	}

	var issues []Issue
	for _, c := range checksFor(decisionType) {
		v := fields.Get(c.Field)

		if !HasValue(v) {
			if c.Required {
				issues = append(issues, Issue{
					Field:    c.Field,
					Severity: SeverityCritical,
					Check:    "presence",
					Message:  fmt.Sprintf("required field %q is missing or empty", c.Field),
				})
			} else if s := v.Str(""); s != "" && IsPlaceholder(s) {
				issues = append(issues, Issue{
					Field:    c.Field,
					Severity: SeverityLow,
					Check:    "placeholder",
					Message:  fmt.Sprintf("field %q contains placeholder value %q", c.Field, s),
				})
			}
			continue
		}

		s := v.Str("")
		if c.MinLen > 0 && v.Kind() == payload.KindString && len(s) < c.MinLen {
			issues = append(issues, Issue{
				Field:    c.Field,
				Severity: SeverityLow,
				Check:    "min_length",
				Message:  fmt.Sprintf("field %q is shorter than %d characters", c.Field, c.MinLen),
			})
		}

		if c.Format != "" && v.Kind() == payload.KindString {
			if re := formats[c.Format]; re != nil && !re.MatchString(s) {
				issues = append(issues, Issue{
					Field:    c.Field,
					Severity: SeverityMedium,
					Check:    "format_" + c.Format,
					Message:  fmt.Sprintf("field %q does not match the expected %s format", c.Field, c.Format),
				})
			}
		}
	}
	return issues
}
