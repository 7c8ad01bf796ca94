// Package push streams edit progress to clients. The Hub fans events out to
// subscribers; the SSE handler exposes the stream over HTTP.
package push

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one push frame, serialized as JSON on the wire.
type Event struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// subscriberBuffer bounds how many events a slow subscriber may lag behind
// before frames are dropped.
const subscriberBuffer = 64

// Hub fans events out to any number of subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release it; the channel is closed on cancel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Delivery is non-blocking:
// a subscriber whose buffer is full loses the frame.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			log.Warn().Str("type", evt.Type).Msg("subscriber buffer full, dropping push event")
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
