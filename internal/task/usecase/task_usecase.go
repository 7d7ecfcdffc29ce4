package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"privatezone-backend/internal/errs"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/tokenguard"
	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/internal/task/repository"
	"privatezone-backend/pkg/events"
	"privatezone-backend/pkg/gauth"

	"go.uber.org/zap"
)

const (
	defaultSyncMax int64 = 100
	maxSyncMax     int64 = 1000
)

var errMissingExternalID = errors.New("task has no id")

type taskUsecase struct {
	taskRepo  repository.TaskRepository
	tasks     TasksClient
	creds     CredentialSource
	history   SyncRecorder
	publisher events.Publisher
	now       func() time.Time
	logger    *zap.Logger
}

func NewTaskUsecase(
	taskRepo repository.TaskRepository,
	tasks TasksClient,
	creds CredentialSource,
	history SyncRecorder,
	publisher events.Publisher,
	logger *zap.Logger,
) TaskUsecase {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &taskUsecase{
		taskRepo:  taskRepo,
		tasks:     tasks,
		creds:     creds,
		history:   history,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("tasks"),
	}
}

func (u *taskUsecase) Create(ctx context.Context, userID string, in TaskInput) (*taskdomain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errs.Validation("task text is required")
	}

	task := &taskdomain.Task{
		UserID:     userID,
		Source:     taskdomain.SourceUser,
		Title:      title,
		Notes:      in.Notes,
		DueDate:    in.DueDate,
		ReminderAt: in.ReminderAt,
	}
	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (u *taskUsecase) Get(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, errs.NotFound("task")
	}
	return task, nil
}

func (u *taskUsecase) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]*taskdomain.Task, int64, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, errs.Validation("limit and offset must not be negative")
	}
	return u.taskRepo.List(ctx, userID, filter)
}

func (u *taskUsecase) Update(ctx context.Context, userID, taskID string, patch taskdomain.TaskPatch) (*taskdomain.Task, error) {
	if patch.Empty() {
		return nil, errs.Validation("no fields to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, errs.Validation("task text must not be empty")
	}

	task, err := u.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	patch.Apply(task)
	if err := u.taskRepo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (u *taskUsecase) Delete(ctx context.Context, userID, taskID string) error {
	deleted, err := u.taskRepo.Delete(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.NotFound("task")
	}
	return nil
}

func (u *taskUsecase) Bulk(ctx context.Context, userID string, action taskdomain.BulkAction, taskIDs []string) (int64, error) {
	if !action.Valid() {
		return 0, errs.Validation("unknown action %q", action)
	}
	if len(taskIDs) == 0 {
		return 0, errs.Validation("taskIds must not be empty")
	}
	return u.taskRepo.Bulk(ctx, userID, taskIDs, action)
}

func (u *taskUsecase) credentials(ctx context.Context, userID string) (gauth.Credentials, error) {
	rec, err := u.creds.Credentials(ctx, userID, intdomain.ProviderTasks)
	if err != nil {
		return gauth.Credentials{}, err
	}
	return tokenguard.ClientCredentials(rec), nil
}

func (u *taskUsecase) Sync(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error) {
	max := opts.MaxResults
	if max <= 0 {
		max = defaultSyncMax
	}
	if max > maxSyncMax {
		max = maxSyncMax
	}
	log := u.logger.With(zap.String("user_id", userID), zap.String("provider", string(intdomain.ProviderTasks)))

	creds, err := u.credentials(ctx, userID)
	if err != nil {
		log.Warn("sync aborted: no usable credentials", zap.Error(err))
		return nil, err
	}

	remote, err := u.tasks.ListTasks(ctx, creds, max)
	if err != nil {
		log.Error("sync aborted", zap.Error(err))
		return nil, fmt.Errorf("list google tasks: %w", err)
	}

	res := &SyncResult{
		TotalFetched: len(remote),
		Tasks:        make([]*taskdomain.Task, 0, len(remote)),
	}
	for i := range remote {
		task, err := u.reconcile(ctx, userID, remote[i])
		if err != nil {
			log.Warn("skip task", zap.String("external_id", remote[i].ExternalID), zap.Error(err))
			res.FailedCount++
			continue
		}
		res.Tasks = append(res.Tasks, task)
	}
	res.SyncedCount = len(res.Tasks)

	now := u.now().UTC()
	outcome := intdomain.SyncOutcome{Synced: res.SyncedCount, Fetched: res.TotalFetched, Failed: res.FailedCount}
	if err := u.history.RecordSync(ctx, userID, intdomain.ProviderTasks, outcome, now); err != nil {
		log.Warn("record sync history", zap.Error(err))
	}
	if err := u.publisher.PublishSync(ctx, events.SyncEvent{
		UserID:   userID,
		Kind:     string(intdomain.ProviderTasks),
		Synced:   res.SyncedCount,
		Fetched:  res.TotalFetched,
		Failed:   res.FailedCount,
		SyncedAt: now,
	}); err != nil {
		log.Warn("publish sync event", zap.Error(err))
	}

	log.Info("tasks sync finished",
		zap.Int("synced", res.SyncedCount),
		zap.Int("fetched", res.TotalFetched),
		zap.Int("failed", res.FailedCount))
	return res, nil
}

// reconcile inserts an unseen remote task or refreshes completion and due
// date of a mirrored one.
func (u *taskUsecase) reconcile(ctx context.Context, userID string, rt taskdomain.RemoteTask) (*taskdomain.Task, error) {
	if rt.ExternalID == "" {
		return nil, errMissingExternalID
	}

	existing, err := u.taskRepo.FindByExternalID(ctx, userID, rt.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		externalID := rt.ExternalID
		task := &taskdomain.Task{
			UserID:     userID,
			ExternalID: &externalID,
			Source:     taskdomain.SourceGoogleTasks,
			Title:      rt.Title,
			Notes:      rt.Notes,
			Completed:  rt.Completed,
			DueDate:    rt.Due,
		}
		if err := u.taskRepo.Create(ctx, task); err != nil {
			return nil, err
		}
		return task, nil
	}

	patch := taskdomain.TaskPatch{Completed: &rt.Completed, DueDate: rt.Due, ClearDueDate: rt.Due == nil}
	patch.Apply(existing)
	if err := u.taskRepo.Save(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (u *taskUsecase) Push(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	task, err := u.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.ExternalID != nil {
		return nil, errs.Validation("task is already linked to Google Tasks")
	}

	creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	created, err := u.tasks.CreateTask(ctx, creds, taskdomain.RemoteTask{
		Title:     task.Title,
		Notes:     task.Notes,
		Completed: task.Completed,
		Due:       task.DueDate,
	})
	if err != nil {
		return nil, err
	}
	if created.ExternalID == "" {
		return nil, errs.Remote(string(intdomain.ProviderTasks), 0, errMissingExternalID)
	}

	task.ExternalID = &created.ExternalID
	task.Source = taskdomain.SourceGoogleTasks
	if err := u.taskRepo.Save(ctx, task); err != nil {
		u.logger.Error("link pushed task",
			zap.String("user_id", userID),
			zap.String("task_id", task.ID),
			zap.String("external_id", created.ExternalID),
			zap.Error(err))
		return nil, fmt.Errorf("link task: %w", err)
	}
	return task, nil
}
