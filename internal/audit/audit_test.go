package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"casewise/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:        "test-1",
		ActorType: ActorUser,
		ActorRole: "reviewer",
		Action:    ActionRecomputeCompleted,
		CaseID:    "case-1",
		Trigger:   "manual",
		Summary:   "recompute completed for case-1",
		Detail:    "score 81.25 band high",
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ActorType != ActorUser || got.ActorRole != "reviewer" {
		t.Errorf("actor = %q/%q, want user/reviewer", got.ActorType, got.ActorRole)
	}
	if got.Action != ActionRecomputeCompleted {
		t.Errorf("Action = %q", got.Action)
	}
	if got.CaseID != "case-1" || got.Trigger != "manual" {
		t.Errorf("case/trigger = %q/%q", got.CaseID, got.Trigger)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestLogGeneratesID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.Log(ctx, Entry{
		ActorType: ActorSystem,
		Action:    ActionRecomputeCoalesced,
		CaseID:    "case-2",
		Trigger:   "submission_updated",
		Summary:   "recompute coalesced into pending run",
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{CaseID: "case-2"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID == "" {
		t.Errorf("entries = %+v, want one with generated id", entries)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	seed := []Entry{
		{ActorType: ActorSystem, Action: ActionRecomputeCompleted, CaseID: "a", Trigger: "manual", Summary: "s1"},
		{ActorType: ActorSystem, Action: ActionRecomputeFailed, CaseID: "a", Trigger: "submission_created", Summary: "s2"},
		{ActorType: ActorUser, ActorRole: "reviewer", Action: ActionExportGenerated, CaseID: "b", Summary: "s3"},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	byCase, err := store.Query(ctx, QueryFilter{CaseID: "a"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byCase) != 2 {
		t.Errorf("case a entries = %d, want 2", len(byCase))
	}

	byAction, err := store.Query(ctx, QueryFilter{Action: ActionRecomputeFailed})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byAction) != 1 || byAction[0].Trigger != "submission_created" {
		t.Errorf("byAction = %+v", byAction)
	}

	byRole, err := store.Query(ctx, QueryFilter{ActorRole: "reviewer"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byRole) != 1 || byRole[0].Action != ActionExportGenerated {
		t.Errorf("byRole = %+v", byRole)
	}

	limited, err := store.Query(ctx, QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited = %d entries, want 2", len(limited))
	}
}

func TestQueryTimeWindow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{old, recent} {
		err := store.Log(ctx, Entry{
			Timestamp: ts,
			ActorType: ActorSystem,
			Action:    ActionRecomputeCompleted,
			CaseID:    "w",
			Summary:   "s",
			Trigger:   "manual",
			ID:        []string{"e-old", "e-new"}[i],
		})
		if err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	entries, err := store.Query(ctx, QueryFilter{Since: &since})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "e-new" {
		t.Errorf("since filter = %+v, want only e-new", entries)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Log(ctx, Entry{Timestamp: old, ActorType: ActorSystem, Action: ActionRecomputeCompleted, Summary: "old"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := store.Log(ctx, Entry{ActorType: ActorSystem, Action: ActionRecomputeCompleted, Summary: "new"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	n, err := store.DeleteBefore(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{ID: "r-1", ActorType: ActorSystem, Action: ActionRecomputeCompleted, CaseID: "case-9", Trigger: "manual", Summary: "done"}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/audit/?case_id=case-9")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "r-1" {
		t.Errorf("entries = %+v", entries)
	}

	resp, err = http.Get(srv.URL + "/api/audit/r-1")
	if err != nil {
		t.Fatalf("GET by id: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get by id status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/audit/missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", resp.StatusCode)
	}
}
