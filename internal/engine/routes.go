package engine

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the intelligence read and recompute endpoints.
func RegisterRoutes(r chi.Router, e *Engine) {
	r.Get("/api/intelligence/{caseID}", getIntelligenceHandler(e))
	r.Post("/api/intelligence/{caseID}/recompute", recomputeHandler(e))
}

func getIntelligenceHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		intel, err := e.GetIntelligence(r.Context(), caseID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if intel == nil {
			http.Error(w, "no intelligence computed for case", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, intel)
	}
}

func recomputeHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		var body struct {
			Trigger   string `json:"trigger"`
			ActorRole string `json:"actor_role"`
			Force     bool   `json:"force"`
		}
		if r.Body != nil {
			// An empty body means a plain manual recompute.
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		trigger := body.Trigger
		if trigger == "" {
			trigger = "manual"
		}
		actorRole := body.ActorRole
		if actorRole == "" {
			actorRole = r.Header.Get("X-Actor-Role")
		}
		if actorRole == "" {
			actorRole = "system"
		}

		outcome, err := e.Recompute(r.Context(), caseID, trigger, actorRole, body.Force)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
