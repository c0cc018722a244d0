package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventBus is the publish/subscribe surface shared by all modules
type EventBus interface {
	// Publish queues an event, honouring ctx while the buffer is full
	Publish(ctx context.Context, event Event) error

	// PublishAsync queues an event and drops it when the buffer is full
	PublishAsync(event Event) error

	// Subscribe registers handler for events matching the filter. The
	// subscription ends when ctx is done.
	Subscribe(ctx context.Context, filter EventFilter, handler EventHandler) (*Subscription, error)

	Unsubscribe(subscriptionID string) error
	GetSubscriptions() []*Subscription

	// GetEvents returns stored events, newest first. Without storage it
	// pages through the in-memory ring.
	GetEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error)

	GetStats() EventStats
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
}

// EventLogger is the subset of hclog.Logger the bus logs through
type EventLogger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// EventStorage persists the audit log behind GET /api/events
type EventStorage interface {
	Store(ctx context.Context, event Event) error
	Get(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error)

	// Prune removes events recorded before cutoff and reports how many
	// were removed
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Count(ctx context.Context) (int64, error)
}

// NewEvent stamps a new event with an id and the current time
func NewEvent(eventType EventType, source, title, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Title:     title,
		Message:   message,
		Data:      map[string]interface{}{},
		Priority:  PriorityNormal,
		Tags:      []string{},
		Timestamp: time.Now(),
	}
}

// NewEventWithData is NewEvent with a data payload. Domain events put the
// account and show they concern under "account_id" and "show_id".
func NewEventWithData(eventType EventType, source, title, message string, data map[string]interface{}) Event {
	event := NewEvent(eventType, source, title, message)
	if data != nil {
		event.Data = data
	}
	return event
}

// NewSystemEvent creates an event raised by the process itself
func NewSystemEvent(eventType EventType, title, message string) Event {
	return NewEvent(eventType, "system", title, message)
}
