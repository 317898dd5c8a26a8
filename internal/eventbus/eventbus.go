// Package eventbus implements the in-process Event Bus (spec §6.1,
// §5): a bounded ring buffer of recent events plus per-subscriber
// queues. Grounded on
// original_source/app/core/events.py's AgentEventBus, but
// re-architected per spec §9's "stateful module globals" note: no
// package-level singleton, explicit construction and teardown.
package eventbus

import (
	"sync"
	"time"
)

const (
	maxRecentEvents  = 100
	catchUpEventCount = 20
	subscriberQueueDepth = 64
)

// Event carries one pipeline progress notification.
type Event struct {
	RunID     string
	AgentName string
	StepType  string
	State     string // STARTED | COMPLETED | ERROR
	Timestamp time.Time
	Payload   map[string]any
}

// Bus is an explicitly-constructed, explicitly-torn-down pub/sub hub.
// All mutation happens under mu, matching the original's asyncio.Lock
// usage translated to a Go mutex.
type Bus struct {
	mu          sync.Mutex
	recent      []Event
	subscribers map[int]chan Event
	nextID      int
	closed      bool
}

// New constructs a fresh Event Bus. There is no package-level
// instance; callers own the lifecycle.
func New() *Bus {
	return &Bus{subscribers: make(map[int]chan Event)}
}

// Publish appends to the ring buffer (trimmed to the last 100 events)
// and broadcasts to every live subscriber, matching
// AgentEventBus.publish. A full subscriber queue drops the event for
// that subscriber rather than blocking the publisher.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.recent = append(b.recent, e)
	if len(b.recent) > maxRecentEvents {
		b.recent = b.recent[len(b.recent)-maxRecentEvents:]
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its event channel
// primed with the last 20 recorded events for late-joiner catch-up,
// plus an unsubscribe function.
func (b *Bus) Subscribe() (events <-chan Event, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberQueueDepth)
	b.subscribers[id] = ch

	start := len(b.recent) - catchUpEventCount
	if start < 0 {
		start = 0
	}
	for _, e := range b.recent[start:] {
		select {
		case ch <- e:
		default:
		}
	}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
}

// RecentEvents returns recorded events, optionally filtered by run id
// and capped at limit (0 = unlimited), matching
// AgentEventBus.get_recent_events.
func (b *Bus) RecentEvents(runID string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for _, e := range b.recent {
		if runID != "" && e.RunID != runID {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Close tears down the bus: closes every subscriber channel and marks
// it closed to further publishes, satisfying the explicit-teardown
// requirement of spec §9.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
