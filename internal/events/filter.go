package events

import (
	"math"
	"slices"
)

// AccountID returns the account the event concerns, if its data names one
func (e Event) AccountID() (uint, bool) {
	return dataID(e.Data, "account_id")
}

// ShowID returns the show the event concerns, if its data names one
func (e Event) ShowID() (uint, bool) {
	return dataID(e.Data, "show_id")
}

// dataID reads an id from event data. Ids arrive as uint from publishers
// and as float64 once an event has been through JSON.
func dataID(data map[string]interface{}, key string) (uint, bool) {
	switch v := data[key].(type) {
	case uint:
		return v, true
	case int:
		if v >= 0 {
			return uint(v), true
		}
	case int64:
		if v >= 0 {
			return uint(v), true
		}
	case float64:
		if v >= 0 && v == math.Trunc(v) {
			return uint(v), true
		}
	}
	return 0, false
}

// MatchesFilter reports whether event passes every criterion set in filter.
// Tags match when the event carries at least one of them.
func MatchesFilter(event Event, filter EventFilter) bool {
	if len(filter.Types) > 0 && !slices.Contains(filter.Types, event.Type) {
		return false
	}
	if len(filter.Sources) > 0 && !slices.Contains(filter.Sources, event.Source) {
		return false
	}
	if len(filter.Tags) > 0 && !slices.ContainsFunc(event.Tags, func(tag string) bool {
		return slices.Contains(filter.Tags, tag)
	}) {
		return false
	}
	if filter.Priority != nil && event.Priority < *filter.Priority {
		return false
	}
	if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
		return false
	}
	if filter.AccountID != nil {
		if id, ok := event.AccountID(); !ok || id != *filter.AccountID {
			return false
		}
	}
	if filter.ShowID != nil {
		if id, ok := event.ShowID(); !ok || id != *filter.ShowID {
			return false
		}
	}
	return true
}

// FilterEvents returns the events that match filter, keeping their order
func FilterEvents(events []Event, filter EventFilter) []Event {
	filtered := make([]Event, 0, len(events))
	for _, event := range events {
		if MatchesFilter(event, filter) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
