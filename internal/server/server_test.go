package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"casewise/internal/config"
	"casewise/internal/db"
	"casewise/internal/engine"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowAllOrigins = true
	return New(cfg, database)
}

func TestHealthCheck(t *testing.T) {
	srv := setupServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := setupServer(t)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

// End-to-end: create a case, attach artifacts, recompute, read back.
func TestCaseToIntelligenceFlow(t *testing.T) {
	srv := setupServer(t)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/api/cases", "application/json",
		strings.NewReader(`{"decision_type":"csf_application","title":"Summit Pharmacy CSF"}`))
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create case status = %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode case: %v", err)
	}

	resp, err = http.Post(ts.URL+"/api/cases/"+created.ID+"/submission", "application/json",
		strings.NewReader(`{"fields":{"facility_name":"Summit Pharmacy LLC","dea_registration":"AB1234567","state":"OH","controlled_schedules":["II","III"]}}`))
	if err != nil {
		t.Fatalf("submission: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submission status = %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/cases/"+created.ID+"/attachments", "application/json",
		strings.NewReader(`{"class":"dea_certificate","filename":"cert.pdf","verified":true}`))
	if err != nil {
		t.Fatalf("attachment: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("attachment status = %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/intelligence/"+created.ID+"/recompute", "application/json",
		strings.NewReader(`{"force":true}`))
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	defer resp.Body.Close()
	var outcome engine.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Status != engine.StatusComputed {
		t.Fatalf("outcome = %+v", outcome)
	}

	resp, err = http.Get(ts.URL + "/api/intelligence/" + created.ID)
	if err != nil {
		t.Fatalf("get intelligence: %v", err)
	}
	defer resp.Body.Close()
	var intel engine.Intelligence
	if err := json.NewDecoder(resp.Body).Decode(&intel); err != nil {
		t.Fatalf("decode intelligence: %v", err)
	}
	if intel.ConfidenceBand != "high" {
		t.Errorf("band = %q, want high", intel.ConfidenceBand)
	}

	resp, err = http.Get(ts.URL + "/api/intelligence/" + created.ID + "/history")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()
	var recs []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("history rows = %d, want 1", len(recs))
	}
}
