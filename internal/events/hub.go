// Package events pushes recompute completions to watching clients over
// WebSocket. The hub is fire-and-forget: a slow or dead subscriber is
// dropped rather than blocking a recompute.
package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IntelligenceEvent is the outgoing message format.
type IntelligenceEvent struct {
	Type            string    `json:"type"` // "intelligence_updated"
	CaseID          string    `json:"case_id"`
	DecisionType    string    `json:"decision_type"`
	ConfidenceScore float64   `json:"confidence_score"`
	ConfidenceBand  string    `json:"confidence_band"`
	Trigger         string    `json:"trigger"`
	ComputedAt      time.Time `json:"computed_at"`
}

// Hub fans intelligence events out to connected watchers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan IntelligenceEvent]string // value is the case filter, "" for all
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[chan IntelligenceEvent]string{}}
}

// Publish delivers an event to every matching subscriber. Subscribers
// with a full buffer miss the event; they are watchers, not a journal.
func (h *Hub) Publish(ev IntelligenceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, filter := range h.subs {
		if filter != "" && filter != ev.CaseID {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a watcher for a case ID, or all cases when caseID
// is empty. The returned cancel func must be called exactly once.
func (h *Hub) Subscribe(caseID string) (<-chan IntelligenceEvent, func()) {
	ch := make(chan IntelligenceEvent, 16)
	h.mu.Lock()
	h.subs[ch] = caseID
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// RegisterRoutes mounts the watch endpoint on the given router.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/api/intelligence/watch", h.handleWatch)
}

func (h *Hub) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.Subscribe(r.URL.Query().Get("case_id"))
	defer cancel()

	// Reads only serve to detect the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("events: websocket write: %v", err)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
