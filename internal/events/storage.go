package events

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// storedEvent is one row of the system_events audit table. The account and
// show an event concerns are copied out of its data into indexed columns
// so staff can pull one subscriber's or one show's history.
type storedEvent struct {
	ID        uint                   `gorm:"primaryKey"`
	EventID   string                 `gorm:"size:36;uniqueIndex;not null"`
	Type      EventType              `gorm:"size:64;not null;index:idx_system_events_type_created,priority:1"`
	Source    string                 `gorm:"size:128;not null;index"`
	Target    string                 `gorm:"size:128"`
	Title     string                 `gorm:"size:255"`
	Message   string                 `gorm:"type:text"`
	AccountID *uint                  `gorm:"index"`
	ShowID    *uint                  `gorm:"index"`
	Data      map[string]interface{} `gorm:"type:text;serializer:json"`
	Tags      []string               `gorm:"type:text;serializer:json"`
	Priority  EventPriority          `gorm:"not null"`
	CreatedAt time.Time              `gorm:"not null;index;index:idx_system_events_type_created,priority:2"`
}

func (storedEvent) TableName() string {
	return "system_events"
}

func newStoredEvent(event Event) *storedEvent {
	row := &storedEvent{
		EventID:   event.ID,
		Type:      event.Type,
		Source:    event.Source,
		Target:    event.Target,
		Title:     event.Title,
		Message:   event.Message,
		Data:      event.Data,
		Tags:      event.Tags,
		Priority:  event.Priority,
		CreatedAt: event.Timestamp,
	}
	if id, ok := event.AccountID(); ok {
		row.AccountID = &id
	}
	if id, ok := event.ShowID(); ok {
		row.ShowID = &id
	}
	return row
}

func (row *storedEvent) event() Event {
	event := Event{
		ID:        row.EventID,
		Type:      row.Type,
		Source:    row.Source,
		Target:    row.Target,
		Title:     row.Title,
		Message:   row.Message,
		Data:      row.Data,
		Tags:      row.Tags,
		Priority:  row.Priority,
		Timestamp: row.CreatedAt,
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}
	return event
}

// Migrate creates the system_events table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&storedEvent{})
}

type databaseEventStorage struct {
	db *gorm.DB
}

// NewDatabaseEventStorage stores events in system_events through gorm
func NewDatabaseEventStorage(db *gorm.DB) EventStorage {
	return &databaseEventStorage{db: db}
}

func (s *databaseEventStorage) Store(ctx context.Context, event Event) error {
	if err := s.db.WithContext(ctx).Create(newStoredEvent(event)).Error; err != nil {
		return fmt.Errorf("failed to store event %s: %w", event.Type, err)
	}
	return nil
}

// Get pages through stored events matching filter, newest first. total
// counts every match, not just the page.
func (s *databaseEventStorage) Get(ctx context.Context, filter EventFilter, limit, offset int) ([]Event, int64, error) {
	query := s.db.WithContext(ctx).Model(&storedEvent{})

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		query = query.Where("type IN ?", types)
	}
	if len(filter.Sources) > 0 {
		query = query.Where("source IN ?", filter.Sources)
	}
	if filter.Priority != nil {
		query = query.Where("priority >= ?", int(*filter.Priority))
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.ShowID != nil {
		query = query.Where("show_id = ?", *filter.ShowID)
	}
	if len(filter.Tags) > 0 {
		// tags are a JSON array of plain identifiers, so a quoted
		// substring match is exact
		tags := s.db.Where("tags LIKE ?", `%"`+filter.Tags[0]+`"%`)
		for _, tag := range filter.Tags[1:] {
			tags = tags.Or("tags LIKE ?", `%"`+tag+`"%`)
		}
		query = query.Where(tags)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []storedEvent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load events: %w", err)
	}
	events := make([]Event, len(rows))
	for i := range rows {
		events[i] = rows[i].event()
	}
	return events, total, nil
}

func (s *databaseEventStorage) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&storedEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *databaseEventStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&storedEvent{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
