package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"casewise/internal/audit"
	"casewise/internal/casefile"
)

// RegisterRoutes mounts the history and export endpoints. auditStore may
// be nil, in which case exports are not audited. retentionPolicy is a
// human-readable description carried in export metadata.
func RegisterRoutes(r chi.Router, cases *casefile.Store, store *Store, red *Redactor, auditStore *audit.Store, retentionPolicy string) {
	r.Get("/api/intelligence/{caseID}/history", handleHistory(store, red))
	r.Get("/api/intelligence/{caseID}/export", handleExport(cases, store, red, auditStore, retentionPolicy))
}

func handleHistory(store *Store, red *Redactor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		recs, err := store.ListByCase(r.Context(), caseID, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("safe_mode") == "true" {
			for i := range recs {
				recs[i].EvidenceSnapshot = red.Apply(recs[i].EvidenceSnapshot)
				recs[i].IntelligencePayload = red.Apply(recs[i].IntelligencePayload)
			}
		}

		if recs == nil {
			recs = []Record{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handleExport(cases *casefile.Store, store *Store, red *Redactor, auditStore *audit.Store, retentionPolicy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseID")
		q := r.URL.Query()

		opts := DefaultExportOptions()
		opts.Role = q.Get("role")
		opts.SafeMode = q.Get("safe_mode") == "true"
		opts.RetentionPolicy = retentionPolicy
		if q.Get("include_payload") == "false" {
			opts.IncludePayload = false
		}
		if q.Get("include_evidence") == "false" {
			opts.IncludeEvidence = false
		}

		bundle, err := BuildBundle(r.Context(), cases, store, red, caseID, opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		if auditStore != nil {
			role := opts.Role
			if role == "" {
				role = r.Header.Get("X-Actor-Role")
			}
			_ = auditStore.Log(r.Context(), audit.Entry{
				ActorType: audit.ActorUser,
				ActorRole: role,
				Action:    audit.ActionExportGenerated,
				CaseID:    caseID,
				Summary:   "intelligence export generated",
			})
		}

		if r.URL.Query().Get("format") == "html" {
			html, err := bundle.HTML()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(html)
			return
		}

		writeJSON(w, http.StatusOK, bundle)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
