package events

import (
	"context"
	"sync"
)

var (
	globalBus     EventBus
	globalBusLock sync.RWMutex
)

// SetGlobalEventBus sets the global event bus instance
func SetGlobalEventBus(bus EventBus) {
	globalBusLock.Lock()
	defer globalBusLock.Unlock()
	globalBus = bus
}

// GetGlobalEventBus returns the global event bus instance
func GetGlobalEventBus() EventBus {
	globalBusLock.RLock()
	defer globalBusLock.RUnlock()
	return globalBus
}

// Emit publishes on bus without blocking. A nil bus is ignored so that
// services can run without one in tests and tooling.
func Emit(bus EventBus, event Event) {
	if bus == nil {
		return
	}
	_ = bus.PublishAsync(event)
}

// noopBus is used where an EventBus is required but events are not wanted
type noopBus struct{}

// NewNoopBus returns a bus that accepts and discards every event
func NewNoopBus() EventBus { return noopBus{} }

func (noopBus) Publish(context.Context, Event) error { return nil }
func (noopBus) PublishAsync(Event) error             { return nil }
func (noopBus) Subscribe(context.Context, EventFilter, EventHandler) (*Subscription, error) {
	return &Subscription{ID: "noop"}, nil
}
func (noopBus) Unsubscribe(string) error          { return nil }
func (noopBus) GetSubscriptions() []*Subscription { return nil }
func (noopBus) GetEvents(context.Context, EventFilter, int, int) ([]Event, int64, error) {
	return []Event{}, 0, nil
}
func (noopBus) GetStats() EventStats        { return EventStats{} }
func (noopBus) Start(context.Context) error { return nil }
func (noopBus) Stop(context.Context) error  { return nil }
func (noopBus) Health() error               { return nil }
