package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

func TestSubscribeAndPublish(t *testing.T) {
	hub := NewHub()
	all, cancelAll := hub.Subscribe("")
	defer cancelAll()
	filtered, cancelFiltered := hub.Subscribe("case-2")
	defer cancelFiltered()

	hub.Publish(IntelligenceEvent{Type: "intelligence_updated", CaseID: "case-1", ConfidenceScore: 81})

	select {
	case ev := <-all:
		if ev.CaseID != "case-1" {
			t.Errorf("case = %q", ev.CaseID)
		}
	case <-time.After(time.Second):
		t.Fatal("unfiltered subscriber missed the event")
	}

	select {
	case ev := <-filtered:
		t.Errorf("filtered subscriber got foreign event: %+v", ev)
	default:
	}

	hub.Publish(IntelligenceEvent{Type: "intelligence_updated", CaseID: "case-2"})
	select {
	case <-filtered:
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber missed its case")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("")
	cancel()

	hub.Publish(IntelligenceEvent{CaseID: "case-1"})
	select {
	case ev := <-ch:
		t.Errorf("cancelled subscriber received %+v", ev)
	default:
	}
}

func TestWatchEndpoint(t *testing.T) {
	hub := NewHub()
	r := chi.NewRouter()
	hub.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/intelligence/watch"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Give the handler a moment to register its subscription.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		n := len(hub.subs)
		hub.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(IntelligenceEvent{Type: "intelligence_updated", CaseID: "case-7", ConfidenceBand: "high"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev IntelligenceEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.CaseID != "case-7" || ev.ConfidenceBand != "high" {
		t.Errorf("event = %+v", ev)
	}
}
