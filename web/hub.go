package web

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swdee/go-smilecam"
)

// Subscriber receives a copy of every published event it is interested in
type Subscriber struct {
	// ID uniquely identifies the subscriber in logs
	ID string
	// Kind describes the subscriber such as "ws" or "mjpeg"
	Kind string

	ch      chan smilecam.Event
	types   map[smilecam.EventType]bool
	dropped atomic.Uint64
	// mu serializes senders so queued events can be reordered safely
	mu sync.Mutex
}

// Events returns the channel events are delivered on.  It is closed when the
// subscriber is removed or the hub stops.
func (s *Subscriber) Events() <-chan smilecam.Event {
	return s.ch
}

// Dropped returns how many events were discarded because the subscriber was
// not keeping up
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// wants reports whether the subscriber asked for events of type t
func (s *Subscriber) wants(t smilecam.EventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// deliver queues ev without blocking.  A full queue drops the incoming frame,
// while a game event evicts the oldest queued frame to make room so points
// updates and rewards reach the observer in order.  A game event is only
// lost when the queue holds nothing but game events.  It returns whether ev
// was queued and whether any event was dropped.
func (s *Subscriber) deliver(ev smilecam.Event) (queued, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.ch <- ev:
		return true, false
	default:
	}

	if ev.Type == smilecam.EventFrame {
		return false, true
	}

	pending := make([]smilecam.Event, 0, cap(s.ch))

drain:
	for {
		select {
		case q := <-s.ch:
			pending = append(pending, q)
		default:
			break drain
		}
	}

	for i, q := range pending {
		if q.Type == smilecam.EventFrame {
			pending = append(pending[:i], pending[i+1:]...)
			dropped = true
			break
		}
	}

	// the reader may have taken events while the queue was drained
	if len(pending) < cap(s.ch) {
		pending = append(pending, ev)
		queued = true
	} else {
		dropped = true
	}

	// only senders holding mu write to ch, so these never block
	for _, q := range pending {
		s.ch <- q
	}

	return queued, dropped
}

// Hub fans events from the frame pipeline out to all connected observers.
// Delivery never blocks.  A slow subscriber loses frames rather than
// stalling the others, game events displace queued frames.
type Hub struct {
	log    *zap.Logger
	buffer int

	subs    map[string]*Subscriber
	closed  bool
	mu      sync.RWMutex
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// HubStats holds the hub delivery counters
type HubStats struct {
	Subscribers int    `json:"subscribers"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

// NewHub returns a hub giving each subscriber a queue of buffer events
func NewHub(log *zap.Logger, buffer int) *Hub {

	if log == nil {
		log = zap.NewNop()
	}

	if buffer < 1 {
		buffer = 1
	}

	return &Hub{
		log:    log,
		buffer: buffer,
		subs:   make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber for the given event types, or all
// events if none are given
func (h *Hub) Subscribe(kind string, types ...smilecam.EventType) *Subscriber {

	sub := &Subscriber{
		ID:    uuid.NewString(),
		Kind:  kind,
		ch:    make(chan smilecam.Event, h.buffer),
		types: make(map[smilecam.EventType]bool, len(types)),
	}

	for _, t := range types {
		sub.types[t] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}

	h.subs[sub.ID] = sub

	h.log.Info("connect", zap.String("subscriber", sub.ID),
		zap.String("kind", kind), zap.Int("subscribers", len(h.subs)))

	return sub
}

// Unsubscribe removes the subscriber and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID]; !ok {
		return
	}

	delete(h.subs, sub.ID)
	close(sub.ch)

	h.log.Info("disconnect", zap.String("subscriber", sub.ID),
		zap.String("kind", sub.Kind), zap.Uint64("dropped", sub.Dropped()),
		zap.Int("subscribers", len(h.subs)))
}

// Publish delivers ev to every interested subscriber without blocking
func (h *Hub) Publish(ev smilecam.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {

		if !sub.wants(ev.Type) {
			continue
		}

		queued, dropped := sub.deliver(ev)

		if queued {
			h.sent.Add(1)
		}

		if dropped {
			sub.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

// Run publishes every event received on in until in is closed or ctx is
// done, then closes all subscribers
func (h *Hub) Run(ctx context.Context, in <-chan smilecam.Event) {

	defer h.close()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-in:
			if !ok {
				return
			}

			h.Publish(ev)
		}
	}
}

// close removes all subscribers, later subscriptions are closed immediately
func (h *Hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}

	h.closed = true
}

// Stats returns the delivery counters
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	n := len(h.subs)
	h.mu.RUnlock()

	return HubStats{
		Subscribers: n,
		Delivered:   h.sent.Load(),
		Dropped:     h.dropped.Load(),
	}
}
