package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"casewise/internal/audit"
	"casewise/internal/casefile"
	"casewise/internal/db"
	"casewise/internal/payload"
)

func setupStores(t *testing.T) (*Store, *casefile.Store, *audit.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database), casefile.NewStore(database), audit.NewStore(database)
}

func seedCase(t *testing.T, cases *casefile.Store) *casefile.Case {
	t.Helper()
	c, err := cases.CreateCase(context.Background(), casefile.Case{
		ID:           "case-1",
		DecisionType: "csf_application",
		Title:        "Summit Pharmacy CSF",
	})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	return c
}

func record(caseID string, computedAt time.Time, score float64, trigger string) Record {
	return Record{
		CaseID:          caseID,
		ComputedAt:      computedAt,
		ConfidenceScore: score,
		ConfidenceBand:  "high",
		RulesPassed:     7,
		RulesTotal:      7,
		Trigger:         trigger,
		EvidenceHash:    "deadbeef",
		EvidenceSnapshot: payload.FromAny(map[string]any{
			"case_id": caseID,
		}),
		IntelligencePayload: payload.FromAny(map[string]any{
			"confidence_score": score,
			"narrative":        map[string]any{"headline": "h"},
		}),
	}
}

func TestAppendAndListNewestFirst(t *testing.T) {
	store, cases, _ := setupStores(t)
	ctx := context.Background()
	seedCase(t, cases)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, record("case-1", base.Add(time.Duration(i)*time.Hour), float64(70+i), "manual")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recs, err := store.ListByCase(ctx, "case-1", 0)
	if err != nil {
		t.Fatalf("ListByCase: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].ConfidenceScore != 72 || recs[2].ConfidenceScore != 70 {
		t.Errorf("not newest first: %v, %v, %v", recs[0].ConfidenceScore, recs[1].ConfidenceScore, recs[2].ConfidenceScore)
	}

	latest, err := store.Latest(ctx, "case-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ConfidenceScore != 72 {
		t.Errorf("Latest = %+v", latest)
	}

	limited, err := store.ListByCase(ctx, "case-1", 2)
	if err != nil {
		t.Fatalf("ListByCase limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d", len(limited))
	}
}

// computed_at has second granularity, so runs landing in the same second
// must still list in insertion order.
func TestListBreaksSameSecondTies(t *testing.T) {
	store, cases, _ := setupStores(t)
	ctx := context.Background()
	seedCase(t, cases)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, record("case-1", at, float64(70+i), "manual")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	recs, err := store.ListByCase(ctx, "case-1", 0)
	if err != nil {
		t.Fatalf("ListByCase: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].ConfidenceScore != 72 || recs[1].ConfidenceScore != 71 || recs[2].ConfidenceScore != 70 {
		t.Errorf("same-second runs out of order: %v, %v, %v",
			recs[0].ConfidenceScore, recs[1].ConfidenceScore, recs[2].ConfidenceScore)
	}

	latest, err := store.Latest(ctx, "case-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ConfidenceScore != 72 {
		t.Errorf("Latest = %+v", latest)
	}
}

func TestLatestEmpty(t *testing.T) {
	store, cases, _ := setupStores(t)
	seedCase(t, cases)

	latest, err := store.Latest(context.Background(), "case-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != nil {
		t.Errorf("Latest on empty history = %+v, want nil", latest)
	}
}

func TestApplyRetention(t *testing.T) {
	store, cases, _ := setupStores(t)
	ctx := context.Background()
	seedCase(t, cases)

	now := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -100)
	mid := now.AddDate(0, 0, -40)
	fresh := now.AddDate(0, 0, -1)
	for _, ts := range []time.Time{old, mid, fresh} {
		if _, err := store.Append(ctx, record("case-1", ts, 80, "manual")); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Evidence window 30 days, payload window 90 days: the old row loses
	// both payloads, the mid row only its snapshot.
	res, err := store.ApplyRetention(ctx, now, 30, 90)
	if err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if res.SnapshotsCleared != 2 || res.PayloadsCleared != 1 {
		t.Errorf("retention = %+v, want 2 snapshots and 1 payload cleared", res)
	}

	recs, err := store.ListByCase(ctx, "case-1", 0)
	if err != nil {
		t.Fatalf("ListByCase: %v", err)
	}
	for _, rec := range recs {
		// Hash and score columns survive retention always.
		if rec.EvidenceHash == "" || rec.ConfidenceScore != 80 {
			t.Errorf("retention touched hash or score: %+v", rec)
		}
	}
	oldest := recs[len(recs)-1]
	if !oldest.EvidenceSnapshot.IsNull() || !oldest.IntelligencePayload.IsNull() {
		t.Error("oldest record should have both payloads nulled")
	}
	middle := recs[1]
	if !middle.EvidenceSnapshot.IsNull() || middle.IntelligencePayload.IsNull() {
		t.Error("middle record should keep its intelligence payload only")
	}

	// A second sweep is a no-op.
	res, err = store.ApplyRetention(ctx, now, 30, 90)
	if err != nil {
		t.Fatalf("second ApplyRetention: %v", err)
	}
	if res.SnapshotsCleared != 0 || res.PayloadsCleared != 0 {
		t.Errorf("second sweep = %+v, want zero", res)
	}
}

func TestHistoryRoutes(t *testing.T) {
	store, cases, auditStore := setupStores(t)
	ctx := context.Background()
	seedCase(t, cases)

	if _, err := store.Append(ctx, record("case-1", time.Now().UTC(), 81, "manual")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, cases, store, NewRedactor(nil), auditStore, "evidence_days=90 payload_days=365")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/intelligence/case-1/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()
	var recs []Record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0].ConfidenceScore != 81 {
		t.Errorf("history = %+v", recs)
	}
	if recs[0].IntelligencePayload.At("narrative.headline").IsNull() {
		t.Error("plain history should carry full payload")
	}

	resp, err = http.Get(srv.URL + "/api/intelligence/case-1/history?safe_mode=true")
	if err != nil {
		t.Fatalf("GET safe history: %v", err)
	}
	defer resp.Body.Close()
	recs = nil
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode safe: %v", err)
	}
	if !recs[0].IntelligencePayload.At("narrative.headline").IsNull() {
		t.Error("safe mode should null the narrative headline")
	}
	if recs[0].IntelligencePayload.At("confidence_score").Num(0) != 81 {
		t.Error("safe mode should keep the score")
	}
}

func TestExportBundle(t *testing.T) {
	store, cases, auditStore := setupStores(t)
	ctx := context.Background()
	seedCase(t, cases)
	if _, err := store.Append(ctx, record("case-1", time.Now().UTC(), 81, "manual")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	bundle, err := BuildBundle(ctx, cases, store, NewRedactor(nil), "case-1", DefaultExportOptions())
	if err != nil {
		t.Fatalf("BuildBundle: %v", err)
	}
	if bundle.Metadata.CaseID != "case-1" || bundle.Metadata.RecordCount != 1 {
		t.Errorf("metadata = %+v", bundle.Metadata)
	}
	if bundle.Metadata.RedactionMode != "none" || bundle.Metadata.RedactedFieldsCount != 0 {
		t.Errorf("plain export metadata = %+v", bundle.Metadata)
	}
	if bundle.Latest.At("confidence_score").Num(0) != 81 {
		t.Errorf("latest = %v", bundle.Latest)
	}

	safeOpts := DefaultExportOptions()
	safeOpts.SafeMode = true
	safeOpts.Role = "auditor"
	safe, err := BuildBundle(ctx, cases, store, NewRedactor(nil), "case-1", safeOpts)
	if err != nil {
		t.Fatalf("safe BuildBundle: %v", err)
	}
	if safe.Metadata.RedactionMode != "safe_mode" || safe.Metadata.Permissions != "redacted" {
		t.Errorf("safe metadata = %+v", safe.Metadata)
	}
	if safe.Metadata.RedactedFieldsCount == 0 {
		t.Error("safe export should count redacted fields")
	}
	if !safe.Latest.At("narrative.headline").IsNull() {
		t.Error("safe export should null the narrative headline")
	}

	noPayload := DefaultExportOptions()
	noPayload.IncludePayload = false
	slim, err := BuildBundle(ctx, cases, store, NewRedactor(nil), "case-1", noPayload)
	if err != nil {
		t.Fatalf("slim BuildBundle: %v", err)
	}
	if !slim.Latest.IsNull() || !slim.History[0].IntelligencePayload.IsNull() {
		t.Error("include_payload=false should null payloads")
	}
	if slim.History[0].EvidenceHash == "" {
		t.Error("hash must survive payload exclusion")
	}

	html, err := bundle.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	doc := string(html)
	if !strings.Contains(doc, "<table>") || !strings.Contains(doc, "Summit Pharmacy CSF") {
		t.Errorf("html missing expected content:\n%s", doc)
	}

	if _, err := BuildBundle(ctx, cases, store, NewRedactor(nil), "missing", DefaultExportOptions()); err == nil {
		t.Error("missing case should error")
	}

	// Export over HTTP writes an audit entry.
	r := chi.NewRouter()
	RegisterRoutes(r, cases, store, NewRedactor(nil), auditStore, "evidence_days=90 payload_days=365")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/intelligence/case-1/export?safe_mode=true")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}

	entries, err := auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionExportGenerated})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(entries) != 1 || entries[0].CaseID != "case-1" {
		t.Errorf("audit entries = %+v", entries)
	}
}
