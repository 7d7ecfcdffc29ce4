package repository

import (
	"context"
	"errors"
	"time"

	caldomain "privatezone-backend/internal/calendar/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventRepository stores the local mirror of calendar events. Every method
// is scoped by user id.
type EventRepository interface {
	// FindByExternalID returns nil when the event has not been mirrored.
	FindByExternalID(ctx context.Context, userID, externalID string) (*caldomain.Event, error)
	// List returns events starting inside [from, to); nil bounds are open.
	List(ctx context.Context, userID string, from, to *time.Time) ([]*caldomain.Event, error)
	Create(ctx context.Context, ev *caldomain.Event) error
	Save(ctx context.Context, ev *caldomain.Event) error
	DeleteByExternalID(ctx context.Context, userID, externalID string) (bool, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) FindByExternalID(ctx context.Context, userID, externalID string) (*caldomain.Event, error) {
	var ev caldomain.Event
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

func (r *eventRepository) List(ctx context.Context, userID string, from, to *time.Time) ([]*caldomain.Event, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("start_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("start_at < ?", *to)
	}

	var events []*caldomain.Event
	err := query.Order("start_at ASC NULLS LAST").Find(&events).Error
	return events, err
}

func (r *eventRepository) Create(ctx context.Context, ev *caldomain.Event) error {
	now := time.Now().UTC()
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	ev.CreatedAt = now
	ev.UpdatedAt = now
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *eventRepository) Save(ctx context.Context, ev *caldomain.Event) error {
	ev.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(ev).
		Where("user_id = ?", ev.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(ev)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *eventRepository) DeleteByExternalID(ctx context.Context, userID, externalID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		Delete(&caldomain.Event{})
	return res.RowsAffected > 0, res.Error
}
