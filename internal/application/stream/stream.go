// Package stream fans out status events to SSE subscribers so an applicant's
// open portal tab sees decisions without polling.
package stream

import (
	"context"
	"sync"

	"sevasetu/internal/application/models"
	id "sevasetu/pkg/domain"
)

// Hub routes published status events to the subscribers of the matching
// application. Delivery is best-effort: a subscriber that cannot keep up has
// the event dropped rather than blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[id.ApplicationID]map[chan models.StatusEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[id.ApplicationID]map[chan models.StatusEvent]struct{})}
}

// Subscribe registers for one application's events until ctx is done. The
// returned channel is closed on unsubscribe.
func (h *Hub) Subscribe(ctx context.Context, applicationID id.ApplicationID) <-chan models.StatusEvent {
	ch := make(chan models.StatusEvent, 8)

	h.mu.Lock()
	byApp, ok := h.subs[applicationID]
	if !ok {
		byApp = make(map[chan models.StatusEvent]struct{})
		h.subs[applicationID] = byApp
	}
	byApp[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if byApp, ok := h.subs[applicationID]; ok {
			delete(byApp, ch)
			if len(byApp) == 0 {
				delete(h.subs, applicationID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish delivers the event to current subscribers of its application.
func (h *Hub) Publish(event models.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.ApplicationID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount is used by tests and the health surface.
func (h *Hub) SubscriberCount(applicationID id.ApplicationID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[applicationID])
}
