package repository

import (
	"context"
	"time"

	taskdomain "privatezone-backend/internal/task/domain"
)

// TaskFilter narrows a listing. A nil Completed lists both states.
type TaskFilter struct {
	Completed *bool
	Limit     int
	Offset    int
}

// TaskRepository defines the interface for task persistence. Lookups that
// take a user id never return another user's rows.
type TaskRepository interface {
	Create(ctx context.Context, task *taskdomain.Task) error
	// FindByID returns nil when the task does not exist or belongs to
	// someone else.
	FindByID(ctx context.Context, userID, id string) (*taskdomain.Task, error)
	FindByExternalID(ctx context.Context, userID, externalID string) (*taskdomain.Task, error)
	List(ctx context.Context, userID string, filter TaskFilter) ([]*taskdomain.Task, int64, error)
	Save(ctx context.Context, task *taskdomain.Task) error
	Delete(ctx context.Context, userID, id string) (bool, error)
	Bulk(ctx context.Context, userID string, ids []string, action taskdomain.BulkAction) (int64, error)

	// FindPendingReminders returns incomplete tasks whose reminder is due and
	// was not sent yet, across all users.
	FindPendingReminders(ctx context.Context, now time.Time) ([]*taskdomain.Task, error)
	MarkReminderSent(ctx context.Context, id string) error
}
