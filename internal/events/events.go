package events

import (
	"sync"
	"time"

	"github.com/focuslock/focuslock/internal/model"
)

// Type defines the kind of event delivered to the presentation layer.
type Type string

const (
	TypeStatus             Type = "timer-update"
	TypeWorkComplete       Type = "timer-work-complete"
	TypeBreakComplete      Type = "timer-break-complete"
	TypeBlockedAppDetected Type = "blocked-app-detected"
	TypeOverlayClose       Type = "overlay-close"
	TypeOverlayHide        Type = "overlay-hide"
)

// Event is a single notification for observers.
type Event struct {
	Type   Type               `json:"type"`
	Status *model.TimerStatus `json:"status,omitempty"`
	App    string             `json:"app,omitempty"`
	At     time.Time          `json:"at"`
}

// Emitter publishes events.
type Emitter interface {
	Emit(Event)
}

// Bus fans events out to subscribers without ever blocking the sender.
// A subscriber that falls behind drops events.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new observer channel.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Emit delivers event to every subscriber that has room for it.
func (b *Bus) Emit(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	// Sends never block, so holding the lock keeps Close from racing them.
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// StatusEvent wraps a status snapshot.
func StatusEvent(status model.TimerStatus) Event {
	snapshot := status.Clone()
	return Event{Type: TypeStatus, Status: &snapshot}
}
