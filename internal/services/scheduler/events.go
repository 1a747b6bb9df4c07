package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"

	"intersection-worker-go/internal/models"
)

var (
	ErrSubscriberExists   = errors.New("subscriber already exists")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrClosed             = errors.New("scheduler closed")
)

type subscriber struct {
	ch      chan models.IntersectionEvent
	sent    uint64
	dropped uint64
}

// SubscriberStats counts delivered and dropped events for one subscriber
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// eventHub fans events out without ever blocking the phase loop
type eventHub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[string]*subscriber)}
}

func (h *eventHub) subscribe(id string, buffer int) (<-chan models.IntersectionEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if _, exists := h.subs[id]; exists {
		return nil, ErrSubscriberExists
	}
	if buffer < 1 {
		buffer = 1
	}

	sub := &subscriber{ch: make(chan models.IntersectionEvent, buffer)}
	h.subs[id] = sub
	return sub.ch, nil
}

func (h *eventHub) unsubscribe(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, exists := h.subs[id]
	if !exists {
		return ErrSubscriberNotFound
	}
	close(sub.ch)
	delete(h.subs, id)
	return nil
}

func (h *eventHub) publish(evt models.IntersectionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for _, sub := range h.subs {
		select {
		case sub.ch <- evt:
			atomic.AddUint64(&sub.sent, 1)
		default:
			atomic.AddUint64(&sub.dropped, 1)
		}
	}
}

func (h *eventHub) stats() map[string]SubscriberStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]SubscriberStats, len(h.subs))
	for id, sub := range h.subs {
		out[id] = SubscriberStats{
			Sent:    atomic.LoadUint64(&sub.sent),
			Dropped: atomic.LoadUint64(&sub.dropped),
		}
	}
	return out
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
