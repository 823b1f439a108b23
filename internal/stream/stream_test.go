package stream

import (
	"context"
	"testing"
	"time"
)

func TestHubPublishFanOut(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := h.Subscribe(ctx)
	b := h.Subscribe(ctx)
	if h.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", h.Subscribers())
	}

	evt := IncidentEvent{IncidentID: "01TEST", LocationID: 7, Category: "noise"}
	h.Publish(evt)

	for name, ch := range map[string]<-chan IncidentEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.IncidentID != "01TEST" || got.Category != "noise" {
				t.Fatalf("%s: unexpected event: %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: no event received", name)
		}
	}
}

func TestHubUnsubscribesOnContextDone(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := h.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				if h.Subscribers() != 0 {
					t.Fatalf("expected 0 subscribers, got %d", h.Subscribers())
				}
				return
			}
		case <-deadline:
			t.Fatal("channel was not closed after cancel")
		}
	}
}

func TestHubPublishDropsWhenSubscriberIsSlow(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.Subscribe(ctx)

	// Overflow the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(IncidentEvent{IncidentID: "01SLOW"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The buffered events are still readable.
	select {
	case got := <-ch:
		if got.IncidentID != "01SLOW" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected at least one buffered event")
	}
}
