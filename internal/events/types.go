// Package events provides the in-process event bus used for auditing,
// cache invalidation and the live admin feed.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// System-wide event types
const (
	// Account events
	EventAccountRegistered      EventType = "account.registered"
	EventAccountActivated       EventType = "account.activated"
	EventAccountLoggedIn        EventType = "account.logged_in"
	EventAccountUpdated         EventType = "account.updated"
	EventPasswordChanged        EventType = "account.password_changed"
	EventPasswordResetRequested EventType = "account.password_reset_requested"

	// Catalog events
	EventShowCreated     EventType = "show.created"
	EventShowUpdated     EventType = "show.updated"
	EventShowDeleted     EventType = "show.deleted"
	EventCategoryCreated EventType = "category.created"
	EventCategoryUpdated EventType = "category.updated"
	EventCategoryDeleted EventType = "category.deleted"

	// Personalization events
	EventFavoriteAdded   EventType = "favorite.added"
	EventFavoriteRemoved EventType = "favorite.removed"
	EventReviewSubmitted EventType = "review.submitted"
	EventReviewModerated EventType = "review.moderated"

	// Asset events
	EventAssetStored  EventType = "asset.stored"
	EventAssetRemoved EventType = "asset.removed"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"
	EventModuleLoaded  EventType = "module.loaded"
)

// EventPriority represents the priority level of an event
type EventPriority int

const (
	PriorityLow      EventPriority = 1
	PriorityNormal   EventPriority = 5
	PriorityHigh     EventPriority = 10
	PriorityCritical EventPriority = 20
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // system, module id, account:id
	Target    string                 `json:"target"` // specific target if applicable
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Priority  EventPriority          `json:"priority"`
	Tags      []string               `json:"tags"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHandler represents a function that handles events
type EventHandler func(event Event) error

// EventFilter represents filters for event subscriptions
type EventFilter struct {
	Types    []EventType    `json:"types,omitempty"`
	Sources  []string       `json:"sources,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Priority *EventPriority `json:"priority,omitempty"`

	// AccountID and ShowID match the "account_id" and "show_id" data keys
	AccountID *uint      `json:"account_id,omitempty"`
	ShowID    *uint      `json:"show_id,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
}

// Subscription represents an event subscription
type Subscription struct {
	ID            string       `json:"id"`
	Filter        EventFilter  `json:"filter"`
	Handler       EventHandler `json:"-"`
	Subscriber    string       `json:"subscriber"`
	Created       time.Time    `json:"created"`
	LastTriggered *time.Time   `json:"last_triggered,omitempty"`
	TriggerCount  int64        `json:"trigger_count"`
}

// EventStats represents statistics about events
type EventStats struct {
	TotalEvents         int64            `json:"total_events"`
	EventsByType        map[string]int64 `json:"events_by_type"`
	EventsBySource      map[string]int64 `json:"events_by_source"`
	DroppedEvents       int64            `json:"dropped_events"`
	ActiveSubscriptions int              `json:"active_subscriptions"`
}

// EventBusConfig represents configuration for the event bus
type EventBusConfig struct {
	BufferSize        int           `json:"buffer_size"`
	MaxEventAge       time.Duration `json:"max_event_age"`
	RecentEvents      int           `json:"recent_events"`
	EnablePersistence bool          `json:"enable_persistence"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		BufferSize:        1000,
		MaxEventAge:       7 * 24 * time.Hour,
		RecentEvents:      100,
		EnablePersistence: true,
		CleanupInterval:   time.Hour,
	}
}
