// Package bus implements the local event bus consumed by UI and
// service collaborators.
//
// Delivery is synchronous and type-keyed. A handler that panics is
// recovered and logged without affecting delivery to the remaining
// handlers; isolation, not asynchrony, is the contract.
package bus

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// TopicAll receives every published event regardless of type.
const TopicAll = "*"

// Event is a delivered realtime frame.
type Event struct {
	Type       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Handler processes a delivered event.
type Handler func(Event)

type registration struct {
	id int
	fn Handler
}

// Bus fans events out to registered handlers.
type Bus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[string][]registration
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string][]registration),
	}
}

// On registers a handler for an event type (or TopicAll) and returns
// a registration ID for Off.
func (b *Bus) On(eventType string, fn Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: b.nextID, fn: fn})
	return b.nextID
}

// Off removes a previously registered handler. Unknown IDs are a no-op.
func (b *Bus) Off(eventType string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[eventType]
	for i, reg := range regs {
		if reg.id == id {
			b.handlers[eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// Publish delivers an event to handlers registered for its type, then
// to TopicAll handlers, in registration order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	typed := b.handlers[ev.Type]
	catchAll := b.handlers[TopicAll]
	regs := make([]registration, 0, len(typed)+len(catchAll))
	regs = append(regs, typed...)
	regs = append(regs, catchAll...)
	b.mu.RUnlock()

	for _, reg := range regs {
		b.invoke(reg, ev)
	}
}

// HandlerCount returns the number of handlers registered for a type.
func (b *Bus) HandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// invoke calls one handler, containing any panic to that handler.
func (b *Bus) invoke(reg registration, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"type", ev.Type,
				"handler_id", reg.id,
				"panic", r,
			)
		}
	}()
	reg.fn(ev)
}
