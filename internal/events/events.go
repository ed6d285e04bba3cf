// Package events is an in-process pub/sub bus for reschedule lifecycle
// notifications. Handlers run synchronously; the caller decides the
// concurrency model.
package events

import (
	"sync"
	"time"
)

// Event types published by the booking manager.
const (
	TypeRescheduleSubmitted = "reschedule.submitted"
	TypeRescheduleConfirmed = "reschedule.confirmed"
	TypeRescheduleRejected  = "reschedule.rejected"
	TypeRescheduleExpired   = "reschedule.expired"
	TypeSubmissionFailed    = "reschedule.submission_failed"
)

// Event is a lightweight domain event.
type Event struct {
	Type      string
	RequestID string
	SessionID string
	At        time.Time
	Detail    string
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type. An empty type
// subscribes to every event.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type, then wildcard subscribers.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[""]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
