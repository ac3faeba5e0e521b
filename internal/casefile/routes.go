package casefile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"casewise/internal/payload"
)

// TriggerFunc is invoked after a case-changing write so the intelligence
// engine can decide whether to recompute. Implementations must never fail
// the caller; errors are handled at the lifecycle boundary.
type TriggerFunc func(ctx context.Context, caseID, decisionType, trigger, actorRole string)

// RegisterRoutes mounts the case artifact endpoints on the given router.
// onChange is called with the lifecycle trigger matching each write.
func RegisterRoutes(r chi.Router, store *Store, onChange TriggerFunc) {
	r.Post("/api/cases", createCaseHandler(store))
	r.Get("/api/cases/{caseID}", getCaseHandler(store))
	r.Put("/api/cases/{caseID}/status", setStatusHandler(store, onChange))
	r.Post("/api/cases/{caseID}/submission", submissionHandler(store, onChange))
	r.Post("/api/cases/{caseID}/attachments", attachmentHandler(store, onChange))
	r.Post("/api/cases/{caseID}/events", eventHandler(store, onChange))
}

func actorRole(r *http.Request) string {
	if role := r.Header.Get("X-Actor-Role"); role != "" {
		return role
	}
	return "system"
}

func createCaseHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DecisionType string `json:"decision_type"`
			Title        string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.DecisionType == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decision_type is required"})
			return
		}

		c, err := store.CreateCase(r.Context(), Case{DecisionType: req.DecisionType, Title: req.Title})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func getCaseHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := store.GetCase(r.Context(), chi.URLParam(r, "caseID"))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if c == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func setStatusHandler(store *Store, onChange TriggerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var req struct {
			Status Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
			return
		}

		c, err := store.GetCase(r.Context(), caseID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if c == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}

		if err := store.SetStatus(r.Context(), caseID, req.Status); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if onChange != nil {
			onChange(r.Context(), caseID, c.DecisionType, "status_changed", actorRole(r))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func submissionHandler(store *Store, onChange TriggerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var req struct {
			Fields payload.Value `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}

		c, err := store.GetCase(r.Context(), caseID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if c == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}

		sub, existed, err := store.UpsertSubmission(r.Context(), caseID, req.Fields)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		trigger := "submission_created"
		if existed {
			trigger = "submission_updated"
		}
		if onChange != nil {
			onChange(r.Context(), caseID, c.DecisionType, trigger, actorRole(r))
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

func attachmentHandler(store *Store, onChange TriggerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var req Attachment
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Class == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "class is required"})
			return
		}

		c, err := store.GetCase(r.Context(), caseID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if c == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}

		req.CaseID = caseID
		a, err := store.AddAttachment(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if onChange != nil {
			onChange(r.Context(), caseID, c.DecisionType, "evidence_attached", actorRole(r))
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// eventTriggers maps timeline event types to the lifecycle trigger they fire.
// Events not listed are recorded without triggering a recompute.
var eventTriggers = map[EventType]string{
	EventRequestInfoCreated: "request_info_created",
	EventSubmitterResponded: "request_info_resubmitted",
}

func eventHandler(store *Store, onChange TriggerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var req Event
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.EventType == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_type is required"})
			return
		}

		c, err := store.GetCase(r.Context(), caseID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if c == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}

		req.CaseID = caseID
		e, err := store.AddEvent(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if trigger, ok := eventTriggers[req.EventType]; ok && onChange != nil {
			onChange(r.Context(), caseID, c.DecisionType, trigger, actorRole(r))
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
