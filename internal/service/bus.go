package service

import "sync"

// Event kinds published on the bus.
const (
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventModeChanged    = "mode_changed"
	EventStorySelected  = "story_selected"
	EventFilterUpdated  = "filter_updated"
)

// Event represents one session lifecycle notification.
type Event struct {
	Kind    string // e.g. "mode_changed"
	Session string // originating session ID
	Detail  string // kind-specific detail, e.g. the new mode
}

// EventBus is a simple fan-out pub/sub for session events. It feeds the
// metrics listener and the diagnostics event tail.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// SessionRecorder adapts the bus to the session recorder interface: each
// recorded event becomes a bus publication tagged with the session ID.
type SessionRecorder struct {
	Bus     *EventBus
	Session string
}

// Record implements the recorder contract. Publish never blocks, so this
// is safe to call from the session loop.
func (r SessionRecorder) Record(event, detail string) {
	if r.Bus == nil {
		return
	}
	r.Bus.Publish(Event{Kind: event, Session: r.Session, Detail: detail})
}
