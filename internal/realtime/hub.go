package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// DefaultBuffer is the per-subscriber queue length
const DefaultBuffer = 16

// Subscription receives events until it is closed
type Subscription struct {
	id     uint64
	events chan Event
	hub    *Hub
}

// Events returns the receive channel. It is closed on Unsubscribe or hub Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber whose
// queue is full misses the event.
// ⭐ SSOT: every websocket client is fed from here
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Int64
	last    *Event
	origins []string
	logger  *logger.Logger
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		logger: log.WithComponent("realtime"),
	}
}

// Subscribe registers a new subscriber. The latest summary, if any, is queued first.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		events: make(chan Event, h.buffer),
		hub:    h,
	}

	if h.closed {
		close(sub.events)
		return sub
	}

	if h.last != nil {
		sub.events <- *h.last
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.events)
	}
}

// Publish delivers ev to every subscriber with room in its queue
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	if ev.Type == EventFleetSummary {
		cp := ev
		h.last = &cp
	}

	for _, sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			h.dropped.Add(1)
			h.logger.WithField("subscriber", sub.id).Debug("Subscriber queue full, event dropped")
		}
	}
}

// Subscribers returns the number of live subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of events not delivered to slow subscribers
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close closes every subscription; later publishes are ignored
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.events)
		delete(h.subs, id)
	}
}
