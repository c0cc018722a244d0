package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mantonx/streamhub/internal/metrics"
)

// eventBus implements the EventBus interface
type eventBus struct {
	config  EventBusConfig
	logger  EventLogger
	storage EventStorage

	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	eventChannel  chan Event
	running       bool
	stopCh        chan struct{}
	wg            sync.WaitGroup

	recentEvents []Event
	eventStats   EventStats
}

// NewEventBus creates a new event bus instance. storage may be nil, in
// which case only the recent in-memory events are queryable.
func NewEventBus(config EventBusConfig, logger EventLogger, storage EventStorage) EventBus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultEventBusConfig().BufferSize
	}
	if config.RecentEvents <= 0 {
		config.RecentEvents = DefaultEventBusConfig().RecentEvents
	}
	return &eventBus{
		config:        config,
		logger:        logger,
		storage:       storage,
		subscriptions: make(map[string]*Subscription),
		eventChannel:  make(chan Event, config.BufferSize),
		recentEvents:  make([]Event, 0, config.RecentEvents),
		eventStats:    newEventStats(),
	}
}

func newEventStats() EventStats {
	return EventStats{
		EventsByType:   make(map[string]int64),
		EventsBySource: make(map[string]int64),
	}
}

// Start starts the event bus
func (eb *eventBus) Start(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.running {
		return fmt.Errorf("event bus is already running")
	}

	eb.running = true
	eb.stopCh = make(chan struct{})

	eb.wg.Add(1)
	go eb.processEvents(ctx)

	if eb.config.EnablePersistence && eb.storage != nil && eb.config.MaxEventAge > 0 {
		eb.wg.Add(1)
		go eb.cleanupEvents(ctx)
	}

	eb.logger.Info("event bus started", "buffer_size", eb.config.BufferSize)
	return nil
}

// Stop drains queued events and stops the processor
func (eb *eventBus) Stop(ctx context.Context) error {
	eb.mu.Lock()
	if !eb.running {
		eb.mu.Unlock()
		return nil
	}
	eb.running = false
	close(eb.stopCh)
	eb.mu.Unlock()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		eb.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		eb.logger.Warn("event bus stop timed out")
		return ctx.Err()
	}
}

// Publish publishes an event to the event bus
func (eb *eventBus) Publish(ctx context.Context, event Event) error {
	event, err := eb.prepare(event)
	if err != nil {
		return err
	}

	select {
	case eb.eventChannel <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAsync publishes an event without blocking
func (eb *eventBus) PublishAsync(event Event) error {
	event, err := eb.prepare(event)
	if err != nil {
		return err
	}

	select {
	case eb.eventChannel <- event:
		return nil
	default:
		eb.mu.Lock()
		eb.eventStats.DroppedEvents++
		eb.mu.Unlock()
		metrics.EventsDroppedTotal.Inc()
		eb.logger.Warn("event channel full, dropping event", "event_type", event.Type, "event_id", event.ID)
		return fmt.Errorf("event channel full")
	}
}

func (eb *eventBus) prepare(event Event) (Event, error) {
	eb.mu.RLock()
	running := eb.running
	eb.mu.RUnlock()
	if !running {
		return event, fmt.Errorf("event bus is not running")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Priority == 0 {
		event.Priority = PriorityNormal
	}

	if event.Type == "" {
		return event, fmt.Errorf("invalid event: type is required")
	}
	if event.Source == "" {
		return event, fmt.Errorf("invalid event: source is required")
	}
	return event, nil
}

// Subscribe subscribes to events matching the filter. The subscription is
// removed when ctx is cancelled.
func (eb *eventBus) Subscribe(ctx context.Context, filter EventFilter, handler EventHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	subscription := &Subscription{
		ID:         "sub-" + uuid.NewString(),
		Filter:     filter,
		Handler:    handler,
		Subscriber: "system",
		Created:    time.Now(),
	}

	eb.mu.Lock()
	eb.subscriptions[subscription.ID] = subscription
	eb.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			_ = eb.Unsubscribe(subscription.ID)
		}()
	}

	eb.logger.Debug("new subscription created", "subscription_id", subscription.ID, "types", filter.Types)
	return subscription, nil
}

// Unsubscribe removes a subscription
func (eb *eventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[subscriptionID]; !exists {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	return nil
}

// GetSubscriptions returns all active subscriptions
func (eb *eventBus) GetSubscriptions() []*Subscription {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	subscriptions := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions
}

// GetEvents returns stored events based on filter and pagination
func (eb *eventBus) GetEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error) {
	if eb.storage != nil && eb.config.EnablePersistence {
		return eb.storage.Get(ctx, filter, limit, offset)
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// newest first, matching storage order
	filtered := FilterEvents(eb.recentEvents, filter)
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	total := int64(len(filtered))
	if offset >= len(filtered) {
		return []Event{}, total, nil
	}
	end := len(filtered)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return filtered[offset:end], total, nil
}

// GetStats returns event bus statistics
func (eb *eventBus) GetStats() EventStats {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	stats := EventStats{
		TotalEvents:         eb.eventStats.TotalEvents,
		DroppedEvents:       eb.eventStats.DroppedEvents,
		EventsByType:        make(map[string]int64, len(eb.eventStats.EventsByType)),
		EventsBySource:      make(map[string]int64, len(eb.eventStats.EventsBySource)),
		ActiveSubscriptions: len(eb.subscriptions),
	}
	for k, v := range eb.eventStats.EventsByType {
		stats.EventsByType[k] = v
	}
	for k, v := range eb.eventStats.EventsBySource {
		stats.EventsBySource[k] = v
	}
	return stats
}

// Health returns the health status of the event bus
func (eb *eventBus) Health() error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if !eb.running {
		return fmt.Errorf("event bus is not running")
	}

	channelUsage := float64(len(eb.eventChannel)) / float64(cap(eb.eventChannel))
	if channelUsage > 0.9 {
		return fmt.Errorf("event channel is %d%% full", int(channelUsage*100))
	}
	return nil
}

// processEvents processes events from the channel
func (eb *eventBus) processEvents(ctx context.Context) {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.stopCh:
			eb.drain()
			return
		case <-ctx.Done():
			return
		case event := <-eb.eventChannel:
			eb.handleEvent(event)
		}
	}
}

// drain handles whatever was queued before Stop
func (eb *eventBus) drain() {
	for {
		select {
		case event := <-eb.eventChannel:
			eb.handleEvent(event)
		default:
			return
		}
	}
}

// handleEvent processes a single event
func (eb *eventBus) handleEvent(event Event) {
	if eb.config.EnablePersistence && eb.storage != nil {
		if err := eb.storage.Store(context.Background(), event); err != nil {
			eb.logger.Error("failed to store event", "error", err, "event_id", event.ID)
		}
	}

	eb.mu.Lock()
	eb.recentEvents = append(eb.recentEvents, event)
	if len(eb.recentEvents) > eb.config.RecentEvents {
		eb.recentEvents = eb.recentEvents[1:]
	}

	eb.eventStats.TotalEvents++
	eb.eventStats.EventsByType[string(event.Type)]++
	eb.eventStats.EventsBySource[event.Source]++

	var matching []*Subscription
	for _, sub := range eb.subscriptions {
		if MatchesFilter(event, sub.Filter) {
			matching = append(matching, sub)
		}
	}
	eb.mu.Unlock()

	metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()

	for _, sub := range matching {
		eb.notifySubscriber(sub, event)
	}
}

// notifySubscriber notifies a subscriber about an event
func (eb *eventBus) notifySubscriber(subscription *Subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("panic in event handler", "subscription_id", subscription.ID, "error", r, "event_id", event.ID)
		}
	}()

	if err := subscription.Handler(event); err != nil {
		eb.logger.Error("event handler error", "subscription_id", subscription.ID, "error", err, "event_id", event.ID)
		return
	}

	eb.mu.Lock()
	subscription.TriggerCount++
	now := time.Now()
	subscription.LastTriggered = &now
	eb.mu.Unlock()
}

// cleanupEvents removes old events periodically
func (eb *eventBus) cleanupEvents(ctx context.Context) {
	defer eb.wg.Done()

	interval := eb.config.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-eb.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := eb.storage.Prune(ctx, time.Now().Add(-eb.config.MaxEventAge))
			if err != nil {
				eb.logger.Error("failed to prune old events", "error", err)
			} else if removed > 0 {
				eb.logger.Debug("pruned old events", "count", removed, "max_age", eb.config.MaxEventAge)
			}
		}
	}
}
