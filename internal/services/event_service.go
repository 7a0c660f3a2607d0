package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/resumai-be/internal/database"
	"github.com/isdelr/resumai-be/internal/models"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
}

// EventService provides business logic for event management.
type EventService struct {
	db  database.Querier
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db database.Querier) *EventService {
	return &EventService{db: db, now: time.Now}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, userID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO events (id, type, level, message, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		event.ID, event.Type, event.Level, event.Message, event.UserID, event.CreatedAt,
	)
	return err
}

// GetRecentEvents retrieves the most recent events for a user.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		s.db.Rebind("SELECT id, type, level, message, user_id, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?"),
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.UserID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
