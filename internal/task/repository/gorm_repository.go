package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	taskdomain "privatezone-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *taskdomain.Task) error {
	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Source == "" {
		task.Source = taskdomain.SourceUser
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) first(ctx context.Context, query string, args ...any) (*taskdomain.Task, error) {
	var task taskdomain.Task
	err := r.db.WithContext(ctx).Where(query, args...).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskRepository) FindByID(ctx context.Context, userID, id string) (*taskdomain.Task, error) {
	return r.first(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *gormTaskRepository) FindByExternalID(ctx context.Context, userID, externalID string) (*taskdomain.Task, error) {
	return r.first(ctx, "user_id = ? AND external_id = ?", userID, externalID)
}

func (r *gormTaskRepository) List(ctx context.Context, userID string, filter TaskFilter) ([]*taskdomain.Task, int64, error) {
	var tasks []*taskdomain.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&taskdomain.Task{}).Where("user_id = ?", userID)
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// due date first (nulls last), newest first among equals
	query = query.Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	err := query.Find(&tasks).Error
	return tasks, total, err
}

func (r *gormTaskRepository) Save(ctx context.Context, task *taskdomain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(task).
		Where("user_id = ?", task.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormTaskRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&taskdomain.Task{})
	return res.RowsAffected > 0, res.Error
}

func (r *gormTaskRepository) Bulk(ctx context.Context, userID string, ids []string, action taskdomain.BulkAction) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	scope := r.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, ids)

	var res *gorm.DB
	switch action {
	case taskdomain.BulkComplete, taskdomain.BulkUncomplete:
		res = scope.Model(&taskdomain.Task{}).Updates(map[string]any{
			"completed":  action == taskdomain.BulkComplete,
			"updated_at": time.Now().UTC(),
		})
	case taskdomain.BulkDelete:
		res = scope.Delete(&taskdomain.Task{})
	default:
		return 0, fmt.Errorf("unknown bulk action %q", action)
	}
	return res.RowsAffected, res.Error
}

func (r *gormTaskRepository) FindPendingReminders(ctx context.Context, now time.Time) ([]*taskdomain.Task, error) {
	var tasks []*taskdomain.Task
	err := r.db.WithContext(ctx).
		Where("reminder_at <= ? AND reminder_sent = ? AND completed = ?", now, false, false).
		Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskRepository) MarkReminderSent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&taskdomain.Task{}).Where("id = ?", id).
		Updates(map[string]any{
			"reminder_sent": true,
			"updated_at":    time.Now().UTC(),
		}).Error
}
