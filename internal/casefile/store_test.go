package casefile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"casewise/internal/db"
	"casewise/internal/payload"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateAndGetCase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, err := store.CreateCase(ctx, Case{DecisionType: "csf_application", Title: "Lakeside Pharmacy"})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if c.ID == "" {
		t.Error("ID should be auto-generated")
	}
	if c.Status != StatusOpen {
		t.Errorf("Status = %q, want %q", c.Status, StatusOpen)
	}

	got, err := store.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got == nil {
		t.Fatal("GetCase returned nil")
	}
	if got.DecisionType != "csf_application" {
		t.Errorf("DecisionType = %q, want %q", got.DecisionType, "csf_application")
	}

	// Creating a case records a case_created timeline event.
	events, err := store.ListEvents(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].EventType != EventCaseCreated {
		t.Errorf("events = %+v, want single case_created", events)
	}
}

func TestGetCaseNotFound(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetCase(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestUpsertSubmission(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, err := store.CreateCase(ctx, Case{DecisionType: "csf_application"})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}

	fields := payload.FromJSON([]byte(`{"facility_name": "Lakeside Pharmacy", "state": "OH"}`))
	sub, existed, err := store.UpsertSubmission(ctx, c.ID, fields)
	if err != nil {
		t.Fatalf("UpsertSubmission: %v", err)
	}
	if existed {
		t.Error("first upsert should report existed=false")
	}
	if sub.ID == "" {
		t.Error("submission ID should be auto-generated")
	}

	// Second upsert replaces fields and reports existed=true.
	fields2 := payload.FromJSON([]byte(`{"facility_name": "Lakeside Pharmacy", "state": "MI"}`))
	_, existed, err = store.UpsertSubmission(ctx, c.ID, fields2)
	if err != nil {
		t.Fatalf("UpsertSubmission update: %v", err)
	}
	if !existed {
		t.Error("second upsert should report existed=true")
	}

	got, err := store.GetSubmission(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if state := got.Fields.At("state").Str(""); state != "MI" {
		t.Errorf("state after update = %q, want %q", state, "MI")
	}
}

func TestGetSubmissionNone(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, _ := store.CreateCase(ctx, Case{DecisionType: "license_renewal"})
	sub, err := store.GetSubmission(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub != nil {
		t.Errorf("expected nil submission, got %+v", sub)
	}
}

func TestAttachmentsAndEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, _ := store.CreateCase(ctx, Case{DecisionType: "csf_application"})

	_, err := store.AddAttachment(ctx, Attachment{
		CaseID: c.ID, Class: "dea_certificate", Filename: "dea.pdf",
		ContentType: "application/pdf", SizeBytes: 2048, Verified: true,
	})
	if err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}
	_, err = store.AddAttachment(ctx, Attachment{CaseID: c.ID, Class: "inspection_report"})
	if err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}

	atts, err := store.ListAttachments(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(atts) != 2 {
		t.Fatalf("attachments = %d, want 2", len(atts))
	}
	if atts[0].Class != "dea_certificate" || !atts[0].Verified {
		t.Errorf("first attachment = %+v, want verified dea_certificate", atts[0])
	}

	_, err = store.AddEvent(ctx, Event{CaseID: c.ID, EventType: EventRequestInfoCreated, Detail: "missing inspection date"})
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	events, err := store.ListEvents(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	// case_created + request_info_created
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
}

func TestSetStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	c, _ := store.CreateCase(ctx, Case{DecisionType: "csf_application"})

	if err := store.SetStatus(ctx, c.ID, StatusInReview); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, _ := store.GetCase(ctx, c.ID)
	if got.Status != StatusInReview {
		t.Errorf("Status = %q, want %q", got.Status, StatusInReview)
	}

	if err := store.SetStatus(ctx, "nonexistent", StatusClosed); err == nil {
		t.Error("expected error for nonexistent case")
	}
}

func TestListCaseIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.CreateCase(ctx, Case{DecisionType: "license_renewal"}); err != nil {
			t.Fatalf("CreateCase: %v", err)
		}
	}
	ids, err := store.ListCaseIDs(ctx)
	if err != nil {
		t.Fatalf("ListCaseIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("got %d ids, want 3", len(ids))
	}
}

// HTTP handler tests.

func setupTestRouter(t *testing.T) (chi.Router, *Store, *[]string) {
	t.Helper()
	store := setupTestStore(t)
	var triggers []string
	r := chi.NewRouter()
	RegisterRoutes(r, store, func(_ context.Context, _, _, trigger, _ string) {
		triggers = append(triggers, trigger)
	})
	return r, store, &triggers
}

func TestHTTPSubmissionTriggers(t *testing.T) {
	r, store, triggers := setupTestRouter(t)

	c, _ := store.CreateCase(context.Background(), Case{DecisionType: "csf_application"})

	body := []byte(`{"fields": {"facility_name": "Lakeside Pharmacy"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/cases/"+c.ID+"/submission", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/cases/"+c.ID+"/submission", bytes.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	want := []string{"submission_created", "submission_updated"}
	if len(*triggers) != 2 || (*triggers)[0] != want[0] || (*triggers)[1] != want[1] {
		t.Errorf("triggers = %v, want %v", *triggers, want)
	}
}

func TestHTTPAttachmentTrigger(t *testing.T) {
	r, store, triggers := setupTestRouter(t)

	c, _ := store.CreateCase(context.Background(), Case{DecisionType: "csf_application"})

	body := []byte(`{"class": "dea_certificate", "filename": "dea.pdf"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/cases/"+c.ID+"/attachments", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	if len(*triggers) != 1 || (*triggers)[0] != "evidence_attached" {
		t.Errorf("triggers = %v, want [evidence_attached]", *triggers)
	}
}

func TestHTTPEventTriggerMapping(t *testing.T) {
	r, store, triggers := setupTestRouter(t)
	c, _ := store.CreateCase(context.Background(), Case{DecisionType: "csf_application"})

	post := func(eventType string) int {
		body, _ := json.Marshal(map[string]string{"event_type": eventType})
		req := httptest.NewRequest(http.MethodPost, "/api/cases/"+c.ID+"/events", bytes.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("request_info_created"); code != http.StatusCreated {
		t.Fatalf("status = %d", code)
	}
	if code := post("submitter_responded"); code != http.StatusCreated {
		t.Fatalf("status = %d", code)
	}
	// note_added records the event but fires no trigger.
	if code := post("note_added"); code != http.StatusCreated {
		t.Fatalf("status = %d", code)
	}

	want := []string{"request_info_created", "request_info_resubmitted"}
	if len(*triggers) != 2 || (*triggers)[0] != want[0] || (*triggers)[1] != want[1] {
		t.Errorf("triggers = %v, want %v", *triggers, want)
	}
}

func TestHTTPCreateCaseValidation(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/cases", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHTTPSubmissionCaseNotFound(t *testing.T) {
	r, _, triggers := setupTestRouter(t)

	body := []byte(`{"fields": {}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/cases/nope/submission", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(*triggers) != 0 {
		t.Errorf("no trigger expected, got %v", *triggers)
	}
}
