package notify

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

// DefaultStreamBuffer is the per-subscriber channel capacity.
const DefaultStreamBuffer = 100

var streamDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "mishpulse_stream_events_dropped_total",
		Help: "Total number of status events dropped for slow stream subscribers",
	},
)

// Hub is an in-process publish-subscribe notifier keyed by project id.
//
// Subscribers receive events via buffered channels. Sends are non-blocking; if
// a subscriber's buffer is full the event is dropped for that subscriber so a
// slow reader never delays the append path.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	buffer int
}

// NewHub creates a [Hub]. A non-positive buffer uses [DefaultStreamBuffer].
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Hub{
		subs:   make(map[string]map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe returns a channel receiving events for the given project.
//
// Caller must call [Hub.Unsubscribe] when done to prevent resource leaks.
func (h *Hub) Subscribe(projectID string) <-chan Event {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[chan Event]struct{})
	}
	h.subs[projectID][ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (h *Hub) Unsubscribe(projectID string, ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[projectID]
	for subCh := range subs {
		if subCh == ch {
			delete(subs, subCh)
			close(subCh)
			break
		}
	}
	if len(subs) == 0 {
		delete(h.subs, projectID)
	}
}

// Subscribers returns the number of active subscriptions for a project.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}

// Notify implements [registry.Notifier]. It never fails.
func (h *Hub) Notify(_ context.Context, project registry.Project, status registry.Status) error {
	event := NewEvent(project, status)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[project.ID] {
		select {
		case ch <- event:
		default:
			// subscriber is slow, drop the event
			streamDropped.Inc()
		}
	}
	return nil
}
