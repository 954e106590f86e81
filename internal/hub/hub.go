// Package hub implements the broadcast fan-out between the reconciliation
// engine and live observers.  The engine publishes state-change events
// from its own goroutine; each observer owns an independent bounded
// mailbox and drains it at its own pace.  All cross-goroutine handoff
// happens through the mailboxes; publishers never block and never touch
// observer state directly.
package hub

import (
    "sync"
    "sync/atomic"

    "github.com/iliyamo/restaurant-table-reservation/internal/model"
)

// DefaultMailboxCapacity is the per-subscriber buffer used when New is
// given a non-positive capacity.
const DefaultMailboxCapacity = 64

// Hub owns the subscriber registry.  A zero Hub is not usable; construct
// with New.
type Hub struct {
    mu       sync.RWMutex
    subs     map[uint64]*Subscriber
    nextID   uint64
    capacity int
    closed   bool

    published atomic.Uint64
    dropped   atomic.Uint64
}

// Subscriber is one observer's handle: a bounded mailbox plus drop
// accounting.  Obtain via Hub.Subscribe and release with Close.
type Subscriber struct {
    id      uint64
    hub     *Hub
    ch      chan model.StateChangeEvent
    dropped atomic.Uint64
}

// New creates a hub whose subscribers each get a mailbox of the given
// capacity.
func New(capacity int) *Hub {
    if capacity <= 0 {
        capacity = DefaultMailboxCapacity
    }
    return &Hub{
        subs:     make(map[uint64]*Subscriber),
        capacity: capacity,
    }
}

// Subscribe registers a new observer mailbox and returns its handle.
func (h *Hub) Subscribe() *Subscriber {
    h.mu.Lock()
    defer h.mu.Unlock()
    h.nextID++
    s := &Subscriber{
        id:  h.nextID,
        hub: h,
        ch:  make(chan model.StateChangeEvent, h.capacity),
    }
    if h.closed {
        close(s.ch)
        return s
    }
    h.subs[s.id] = s
    return s
}

// Publish enqueues the event to every registered mailbox without ever
// blocking.  A full mailbox sheds its oldest event in favor of the newest:
// dashboards care about current state, not history.  Drops are counted,
// never surfaced as errors.
func (h *Hub) Publish(ev model.StateChangeEvent) {
    h.mu.RLock()
    defer h.mu.RUnlock()

    if h.closed {
        return
    }
    h.published.Add(1)

    for _, s := range h.subs {
        select {
        case s.ch <- ev:
            continue
        default:
        }
        // Mailbox full: shed the oldest entry, then retry once.  A
        // concurrent drain between the two selects only makes room.
        select {
        case <-s.ch:
            s.dropped.Add(1)
            h.dropped.Add(1)
        default:
        }
        select {
        case s.ch <- ev:
        default:
            s.dropped.Add(1)
            h.dropped.Add(1)
        }
    }
}

// Published returns the total number of events accepted by Publish.
func (h *Hub) Published() uint64 { return h.published.Load() }

// Dropped returns the total number of events shed across all mailboxes.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close shuts down the hub and every subscriber mailbox.  Publish becomes
// a no-op.
func (h *Hub) Close() {
    h.mu.Lock()
    defer h.mu.Unlock()
    if h.closed {
        return
    }
    h.closed = true
    for id, s := range h.subs {
        close(s.ch)
        delete(h.subs, id)
    }
}

// Events is the subscriber's mailbox.  It is closed when the subscriber
// or the hub is closed; pending events are discarded at that point.
func (s *Subscriber) Events() <-chan model.StateChangeEvent { return s.ch }

// Dropped returns how many events this mailbox has shed.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Close removes the subscriber from the hub and closes its mailbox.
// It is the observer's own responsibility to call this on disconnect;
// publishers never remove subscribers.
func (s *Subscriber) Close() {
    h := s.hub
    h.mu.Lock()
    defer h.mu.Unlock()
    if _, ok := h.subs[s.id]; !ok {
        return
    }
    delete(h.subs, s.id)
    // Safe: Publish sends only under RLock, which cannot be held here.
    close(s.ch)
}
