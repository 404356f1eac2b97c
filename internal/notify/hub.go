// Package notify fans session event-log deltas out to subscribers. Delivery
// is decoupled from mutation: sessions append to their log and return, and
// each subscription drains the log from its own cursor on a dedicated
// goroutine. Per subscriber, events arrive in append order, at-least-once.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"grid-arena/internal/game"
)

// Subscription is one client's cursor over a session's event log.
type Subscription struct {
	id        string
	sessionID string
	events    chan game.Event
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the subscription's unique id.
func (s *Subscription) ID() string { return s.id }

// SessionID returns the session this subscription follows.
func (s *Subscription) SessionID() string { return s.sessionID }

// Events returns the ordered event stream. The channel closes when the
// subscription is closed or its session is dropped.
func (s *Subscription) Events() <-chan game.Event { return s.events }

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Hub tracks the subscriptions of every live session.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[string]*Subscription // session id -> sub id
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[string]*Subscription)}
}

// Subscribe follows a session's log starting at fromCursor (0 replays the
// whole log, which is how late joiners catch up). The pump goroutine runs
// until Close or DropSession.
func (h *Hub) Subscribe(s *game.Session, fromCursor int) *Subscription {
	sub := &Subscription{
		id:        uuid.NewString(),
		sessionID: s.ID(),
		events:    make(chan game.Event, 64),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[s.ID()] == nil {
		h.subs[s.ID()] = make(map[string]*Subscription)
	}
	h.subs[s.ID()][sub.id] = sub
	h.mu.Unlock()

	go h.pump(s.Log(), sub, fromCursor)
	return sub
}

// Unsubscribe closes the subscription and forgets it.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Close()
	h.mu.Lock()
	if m := h.subs[sub.sessionID]; m != nil {
		delete(m, sub.id)
		if len(m) == 0 {
			delete(h.subs, sub.sessionID)
		}
	}
	h.mu.Unlock()
}

// DropSession closes every subscription of a destroyed session.
func (h *Hub) DropSession(sessionID string) {
	h.mu.Lock()
	subs := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// SubscriberCount returns the number of live subscriptions for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// pump drains the log from the cursor onward, waiting for appends when it
// catches up. Blocking sends keep order per subscriber; a slow subscriber
// stalls only its own goroutine, never the session.
func (h *Hub) pump(log *game.Log, sub *Subscription, cursor int) {
	defer close(sub.events)
	for {
		batch, next := log.Since(cursor)
		for _, event := range batch {
			select {
			case sub.events <- event:
			case <-sub.done:
				return
			}
		}
		cursor = next

		ready := log.Wait()
		// Re-check before sleeping: Append may have raced the Wait call.
		if log.Len() > cursor {
			continue
		}
		select {
		case <-ready:
		case <-sub.done:
			return
		}
	}
}
