// Package stream fan-outs incident events to SSE subscribers so dispatch
// dashboards can watch reports arrive live.
package stream

import (
	"context"
	"sync"
	"time"
)

// IncidentEvent is the wire shape pushed to subscribers when an incident is
// reported.
type IncidentEvent struct {
	IncidentID string    `json:"incident_id"`
	LocationID int64     `json:"location_id"`
	Address    string    `json:"address,omitempty"`
	Category   string    `json:"category"`
	Reporter   string    `json:"reporter"`
	OccurredAt time.Time `json:"occurred_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub fan-outs events to all active subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan IncidentEvent
	next int
}

// New initialises an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[int]chan IncidentEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (h *Hub) Subscribe(ctx context.Context) <-chan IncidentEvent {
	ch := make(chan IncidentEvent, 16)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (h *Hub) Publish(evt IncidentEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
