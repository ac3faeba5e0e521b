// Package server wires the feature packages into one HTTP surface.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"casewise/internal/audit"
	"casewise/internal/casefile"
	"casewise/internal/config"
	"casewise/internal/db"
	"casewise/internal/engine"
	"casewise/internal/events"
	"casewise/internal/history"
	"casewise/internal/signals"
	"casewise/internal/trace"
)

// Server hosts the case and intelligence APIs.
type Server struct {
	cfg        *config.Config
	db         *db.DB
	engine     *engine.Engine
	hub        *events.Hub
	router     chi.Router
	httpServer *http.Server
}

// New assembles the server and all its stores from the loaded config.
func New(cfg *config.Config, database *db.DB) *Server {
	hub := events.NewHub()
	cases := casefile.NewStore(database)
	auditStore := audit.NewStore(database)
	historyStore := history.NewStore(database)

	eng := engine.New(
		cases,
		signals.NewStore(database),
		engine.NewStore(database),
		historyStore,
		auditStore,
		trace.NewStore(database),
		hub,
		engine.Options{
			DebounceWindow: time.Duration(cfg.DebounceWindowSeconds) * time.Second,
			StaleAfter:     time.Duration(cfg.StaleAfterMinutes) * time.Minute,
		},
	)

	s := &Server{cfg: cfg, db: database, engine: eng, hub: hub}
	s.router = s.buildRouter(cases, historyStore, auditStore)
	return s
}

func (s *Server) buildRouter(cases *casefile.Store, historyStore *history.Store, auditStore *audit.Store) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Role"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	casefile.RegisterRoutes(r, cases, s.engine.Trigger)
	engine.RegisterRoutes(r, s.engine)
	retention := fmt.Sprintf("evidence_days=%d payload_days=%d",
		s.cfg.Retention.EvidenceDays, s.cfg.Retention.PayloadDays)
	history.RegisterRoutes(r, cases, historyStore, history.NewRedactor(s.cfg.SafeModePatterns), auditStore, retention)
	audit.RegisterRoutes(r, auditStore)
	s.hub.RegisterRoutes(r)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Engine returns the intelligence engine.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("casewise server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
