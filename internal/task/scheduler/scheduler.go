package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	authdomain "privatezone-backend/internal/auth/domain"
	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/internal/task/repository"
	"privatezone-backend/pkg/fcm"

	"go.uber.org/zap"
)

// TokenStore is the device token side of the auth module.
type TokenStore interface {
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// TaskReminderScheduler sends FCM reminders for tasks whose reminder time
// has passed.
type TaskReminderScheduler struct {
	taskRepo repository.TaskRepository
	tokens   TokenStore
	sender   fcm.Sender
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewTaskReminderScheduler(
	taskRepo repository.TaskRepository,
	tokens TokenStore,
	sender fcm.Sender,
	interval time.Duration,
	logger *zap.Logger,
) *TaskReminderScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TaskReminderScheduler{
		taskRepo: taskRepo,
		tokens:   tokens,
		sender:   sender,
		interval: interval,
		now:      time.Now,
		logger:   logger.Named("task_scheduler"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs a check immediately and then on every tick until ctx is done
// or Stop is called. Without an FCM sender the scheduler stays idle.
func (s *TaskReminderScheduler) Start(ctx context.Context) {
	if s.sender == nil {
		s.logger.Warn("FCM client not available, scheduler disabled")
		close(s.done)
		return
	}
	s.logger.Info("starting task reminder scheduler", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.done)
		s.CheckAndSend(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.CheckAndSend(ctx)
			case <-ctx.Done():
				s.logger.Info("scheduler stopped", zap.Error(ctx.Err()))
				return
			case <-s.stop:
				s.logger.Info("scheduler stopped")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight check to finish.
func (s *TaskReminderScheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// CheckAndSend sends every due reminder once. A reminder is marked sent even
// when delivery failed so a broken device cannot cause repeated pushes.
func (s *TaskReminderScheduler) CheckAndSend(ctx context.Context) int {
	tasks, err := s.taskRepo.FindPendingReminders(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("find pending reminders", zap.Error(err))
		return 0
	}
	if len(tasks) == 0 {
		return 0
	}
	s.logger.Info("pending reminders", zap.Int("count", len(tasks)))

	sent := 0
	for _, task := range tasks {
		log := s.logger.With(zap.String("task_id", task.ID), zap.String("user_id", task.UserID))

		tokens, err := s.tokens.GetTokensByUserID(ctx, task.UserID)
		if err != nil {
			log.Error("load device tokens", zap.Error(err))
			continue
		}

		if len(tokens) > 0 {
			values := make([]string, 0, len(tokens))
			for _, t := range tokens {
				values = append(values, t.Token)
			}

			failed, err := s.sender.SendToDevices(ctx, values, reminder(task))
			if err != nil {
				log.Error("send reminder", zap.Error(err))
			} else {
				sent++
				log.Info("reminder sent", zap.Int("devices", len(values)-len(failed)))
			}
			for _, token := range failed {
				if err := s.tokens.DeleteToken(ctx, token); err != nil {
					log.Warn("prune device token", zap.Error(err))
				}
			}
		} else {
			log.Debug("no device tokens, marking reminder as sent")
		}

		if err := s.taskRepo.MarkReminderSent(ctx, task.ID); err != nil {
			log.Error("mark reminder sent", zap.Error(err))
		}
	}
	return sent
}

func reminder(task *taskdomain.Task) fcm.NotificationData {
	body := task.Notes
	if body == "" {
		body = "You have a task to complete"
	}
	if task.DueDate != nil {
		body = fmt.Sprintf("%s\nDue: %s", body, task.DueDate.Format("02 Jan 2006 15:04"))
	}
	return fcm.NotificationData{
		Title: "Reminder: " + task.Title,
		Body:  body,
		Data: map[string]string{
			"type":         "task_reminder",
			"task_id":      task.ID,
			"click_action": "/tasks",
		},
	}
}
