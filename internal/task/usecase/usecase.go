package usecase

import (
	"context"
	"time"

	intdomain "privatezone-backend/internal/integration/domain"
	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/internal/task/repository"
	"privatezone-backend/pkg/gauth"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	Create(ctx context.Context, userID string, in TaskInput) (*taskdomain.Task, error)
	// Get retrieves a task by ID. Someone else's task is reported as not found.
	Get(ctx context.Context, userID, taskID string) (*taskdomain.Task, error)
	List(ctx context.Context, userID string, filter repository.TaskFilter) ([]*taskdomain.Task, int64, error)
	Update(ctx context.Context, userID, taskID string, patch taskdomain.TaskPatch) (*taskdomain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	Bulk(ctx context.Context, userID string, action taskdomain.BulkAction, taskIDs []string) (int64, error)

	// Sync mirrors the default Google Tasks list into the local table.
	Sync(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error)
	// Push creates a local task on Google Tasks and links the two.
	Push(ctx context.Context, userID, taskID string) (*taskdomain.Task, error)
}

// TasksClient is the Google Tasks provider client. *gtasks.Service
// implements it.
type TasksClient interface {
	ListTasks(ctx context.Context, creds gauth.Credentials, max int64) ([]taskdomain.RemoteTask, error)
	CreateTask(ctx context.Context, creds gauth.Credentials, t taskdomain.RemoteTask) (*taskdomain.RemoteTask, error)
}

type CredentialSource interface {
	Credentials(ctx context.Context, userID string, provider intdomain.Provider) (*intdomain.CredentialRecord, error)
}

type SyncRecorder interface {
	RecordSync(ctx context.Context, userID string, provider intdomain.Provider, outcome intdomain.SyncOutcome, at time.Time) error
}

type TaskInput struct {
	Title      string
	Notes      string
	DueDate    *time.Time
	ReminderAt *time.Time
}

type SyncOptions struct {
	MaxResults int64
}

type SyncResult struct {
	SyncedCount  int                `json:"syncedCount"`
	TotalFetched int                `json:"totalFetched"`
	FailedCount  int                `json:"failedCount"`
	Tasks        []*taskdomain.Task `json:"tasks"`
}
