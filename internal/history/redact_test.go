package history

import (
	"encoding/json"
	"testing"

	"casewise/internal/payload"
)

func samplePayload() payload.Value {
	return payload.FromAny(map[string]any{
		"case_id":          "case-1",
		"decision_type":    "csf_application",
		"confidence_score": 81.25,
		"confidence_band":  "high",
		"diagnosis":        "ok",
		"gaps": []any{
			map[string]any{"gap_type": "missing", "severity": "high", "signal_type": "evidence_present", "message": "expected signal was not observed"},
		},
		"narrative": map[string]any{
			"headline": "Confidence is high (81) for this csf_application case.",
		},
		"submission": map[string]any{
			"field_kinds": map[string]any{"facility_name": "string"},
		},
	})
}

func TestRedactNullsFreeText(t *testing.T) {
	red := NewRedactor(nil)
	out := red.Apply(samplePayload())

	if out.At("confidence_score").Num(0) != 81.25 {
		t.Error("confidence_score should survive redaction")
	}
	if out.At("gaps.0.severity").Str("") != "high" {
		t.Error("gap severity should survive redaction")
	}
	if !out.At("gaps.0.message").IsNull() {
		t.Errorf("gap message = %v, want null", out.At("gaps.0.message"))
	}
	if !out.At("narrative.headline").IsNull() {
		t.Error("narrative headline should be nulled")
	}
	if out.At("submission.field_kinds.facility_name").Str("") != "string" {
		t.Error("field kinds should survive redaction")
	}
}

func TestRedactKeepsKeys(t *testing.T) {
	out := NewRedactor(nil).Apply(samplePayload())

	// Redaction nulls values but never removes keys.
	if out.At("narrative").IsNull() {
		t.Fatal("narrative map removed entirely")
	}
	found := false
	for _, k := range out.At("narrative").Keys() {
		if k == "headline" {
			found = true
		}
	}
	if !found {
		t.Error("headline key removed by redaction")
	}
}

func TestRedactIdempotent(t *testing.T) {
	red := NewRedactor(nil)
	once := red.Apply(samplePayload())
	twice := red.Apply(once)

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	if string(a) != string(b) {
		t.Errorf("redaction not idempotent:\nonce:  %s\ntwice: %s", a, b)
	}
}

func TestRedactCustomPatterns(t *testing.T) {
	red := NewRedactor([]string{"narrative.**"})
	out := red.Apply(samplePayload())

	if out.At("narrative.headline").IsNull() {
		t.Error("allowed pattern was redacted")
	}
	if !out.At("confidence_score").IsNull() {
		t.Error("non-allowed field survived custom pattern set")
	}
}

func TestRedactNullInput(t *testing.T) {
	out := NewRedactor(nil).Apply(payload.Null())
	if !out.IsNull() {
		t.Errorf("redacting null = %v, want null", out)
	}
}
