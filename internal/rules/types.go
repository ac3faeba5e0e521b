// Package rules evaluates declarative rule packs against the full case
// payload, producing a secondary confidence score that cross-checks the
// signal-based one.
package rules

// Severity ranks a rule's importance. It does not affect the rules score,
// which is a plain pass ratio, but is surfaced per result.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rule is one declarative check loaded from a pack. Value's type depends
// on Op: a bool or string for equals, a number for min_len, min_count and
// min, a pattern for matches, a string list for one_of. The present and
// not_placeholder ops take no value.
type Rule struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Severity Severity `yaml:"severity"`
	Weight   float64  `yaml:"weight"`
	Path     string   `yaml:"path"`
	Op       string   `yaml:"op"`
	Value    any      `yaml:"value"`
	Message  string   `yaml:"message"`
}

// RuleResult is one rule's outcome for a case.
type RuleResult struct {
	RuleID    string   `json:"rule_id"`
	Title     string   `json:"title"`
	Passed    bool     `json:"passed"`
	Severity  Severity `json:"severity"`
	Weight    float64  `json:"weight"`
	FieldPath string   `json:"field_path"`
	Message   string   `json:"message,omitempty"`
}
