// Package fieldcheck runs deterministic field-level validation over
// submission field maps. Check lists are static per decision type and
// evaluated in declaration order.
package fieldcheck

import (
	"regexp"
	"strings"
)

// Severity classifies a field issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Issue is one failed field check.
type Issue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Message  string   `json:"message"`
}

// check is one declarative field rule. Checks run in declaration order:
// presence (placeholders count as absent), then min_length, then format.
type check struct {
	Field    string
	Required bool
	MinLen   int
	Format   string // key into formats; empty disables the format check
}

var formats = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	"zip":   regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"state": regexp.MustCompile(`^[A-Z]{2}$`),
	"date":  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	"dea":   regexp.MustCompile(`^[A-Z]{2}\d{7}$`),
	"npi":   regexp.MustCompile(`^\d{10}$`),
}

// placeholders are values submitters type to skip a field. They are
// treated as if the field were absent.
var placeholders = map[string]bool{
	"tbd":     true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"todo":    true,
	"pending": true,
	"-":       true,
	"unknown": true,
}

// IsPlaceholder reports whether a submitted value is a skip marker.
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// checkSets maps decision types to their ordered field checks. Unknown
// decision types use defaultChecks.
var checkSets = map[string][]check{
	"csf_application": {
		{Field: "facility_name", Required: true, MinLen: 3},
		{Field: "dea_registration", Required: true, Format: "dea"},
		{Field: "state", Required: true, Format: "state"},
		{Field: "controlled_schedules", Required: true},
		{Field: "contact_email", Format: "email"},
		{Field: "zip", Format: "zip"},
		{Field: "inspection_date", Format: "date"},
	},
	"license_renewal": {
		{Field: "license_number", Required: true, MinLen: 5},
		{Field: "facility_name", Required: true, MinLen: 3},
		{Field: "expiration_date", Required: true, Format: "date"},
		{Field: "state", Required: true, Format: "state"},
		{Field: "contact_email", Format: "email"},
	},
	"practitioner_registration": {
		{Field: "practitioner_name", Required: true, MinLen: 3},
		{Field: "npi_number", Required: true, Format: "npi"},
		{Field: "state", Required: true, Format: "state"},
		{Field: "dea_registration", Format: "dea"},
		{Field: "contact_email", Format: "email"},
	},
}

var defaultChecks = []check{
	{Field: "applicant_name", Required: true, MinLen: 3},
	{Field: "state", Format: "state"},
	{Field: "contact_email", Format: "email"},
}

func checksFor(decisionType string) []check {
	if cs, ok := checkSets[decisionType]; ok {
		return cs
	}
	return defaultChecks
}

// ExpectedFields returns the required field names for a decision type, in
// declaration order. The signal generator uses this to score submission
// completeness.
func ExpectedFields(decisionType string) []string {
	var fields []string
	for _, c := range checksFor(decisionType) {
		if c.Required {
			fields = append(fields, c.Field)
		}
	}
	return fields
}
