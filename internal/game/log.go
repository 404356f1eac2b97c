package game

import "sync"

// Log is a session's append-only event log. Mutating operations append here
// and return; delivery to subscribers happens elsewhere, each subscriber
// keeping its own cursor into the log. Sequence numbers are the log index,
// so a subscriber that re-reads from an old cursor sees the same events in
// the same order (at-least-once, never reordered, never skipped).
type Log struct {
	mu     sync.Mutex
	events []Event
	signal chan struct{}
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{signal: make(chan struct{})}
}

// Append assigns sequence numbers and adds events to the log, then wakes
// every waiter.
func (l *Log) Append(events ...Event) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	for i := range events {
		events[i].Sequence = uint64(len(l.events))
		l.events = append(l.events, events[i])
	}
	signal := l.signal
	l.signal = make(chan struct{})
	l.mu.Unlock()

	close(signal)
}

// Len returns the number of appended events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Since returns a copy of all events at or after cursor, plus the cursor
// positioned after the last returned event.
func (l *Log) Since(cursor int) ([]Event, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(l.events) {
		return nil, len(l.events)
	}
	batch := make([]Event, len(l.events)-cursor)
	copy(batch, l.events[cursor:])
	return batch, len(l.events)
}

// Wait returns a channel that is closed on the next append. Callers should
// re-check Since after the channel closes.
func (l *Log) Wait() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.signal
}
