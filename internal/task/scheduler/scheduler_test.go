package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	authdomain "privatezone-backend/internal/auth/domain"
	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/internal/task/repository"
	"privatezone-backend/pkg/fcm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRepo struct {
	repository.TaskRepository

	mu      sync.Mutex
	pending []*taskdomain.Task
	marked  []string
	asOf    time.Time
}

func (f *fakeRepo) FindPendingReminders(_ context.Context, now time.Time) ([]*taskdomain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asOf = now
	var out []*taskdomain.Task
	for _, t := range f.pending {
		if !t.ReminderSent {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkReminderSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	for _, t := range f.pending {
		if t.ID == id {
			t.ReminderSent = true
		}
	}
	return nil
}

type fakeTokens struct {
	byUser  map[string][]authdomain.FCMToken
	deleted []string
}

func (f *fakeTokens) GetTokensByUserID(_ context.Context, userID string) ([]authdomain.FCMToken, error) {
	return f.byUser[userID], nil
}

func (f *fakeTokens) DeleteToken(_ context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []fcm.NotificationData
	reject map[string]bool
	err    error
}

func (f *fakeSender) SendToDevices(_ context.Context, tokens []string, n fcm.NotificationData) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, n)
	var failed []string
	for _, t := range tokens {
		if f.reject[t] {
			failed = append(failed, t)
		}
	}
	return failed, nil
}

func TestCheckAndSend_PrunesFailedTokensAndMarksSent(t *testing.T) {
	due := time.Date(2026, 6, 2, 17, 0, 0, 0, time.UTC)
	repo := &fakeRepo{pending: []*taskdomain.Task{
		{ID: "t1", UserID: "u1", Title: "Call mom", DueDate: &due},
		{ID: "t2", UserID: "u2", Title: "No devices"},
	}}
	tokens := &fakeTokens{byUser: map[string][]authdomain.FCMToken{
		"u1": {{Token: "good"}, {Token: "stale"}},
	}}
	sender := &fakeSender{reject: map[string]bool{"stale": true}}

	s := NewTaskReminderScheduler(repo, tokens, sender, time.Minute, zaptest.NewLogger(t))
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	assert.Equal(t, 1, s.CheckAndSend(context.Background()))
	assert.Equal(t, now, repo.asOf)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Reminder: Call mom", sender.sent[0].Title)
	assert.Contains(t, sender.sent[0].Body, "Due: 02 Jun 2026 17:00")
	assert.Equal(t, "t1", sender.sent[0].Data["task_id"])
	assert.Equal(t, []string{"stale"}, tokens.deleted)
	assert.ElementsMatch(t, []string{"t1", "t2"}, repo.marked)

	assert.Equal(t, 0, s.CheckAndSend(context.Background()))
	assert.Len(t, sender.sent, 1)
}

func TestCheckAndSend_SendFailureStillMarks(t *testing.T) {
	repo := &fakeRepo{pending: []*taskdomain.Task{{ID: "t1", UserID: "u1", Title: "x"}}}
	tokens := &fakeTokens{byUser: map[string][]authdomain.FCMToken{"u1": {{Token: "a"}}}}
	sender := &fakeSender{err: errors.New("fcm unavailable")}

	s := NewTaskReminderScheduler(repo, tokens, sender, time.Minute, zaptest.NewLogger(t))
	assert.Equal(t, 0, s.CheckAndSend(context.Background()))
	assert.Equal(t, []string{"t1"}, repo.marked)
}

func TestStartStop(t *testing.T) {
	repo := &fakeRepo{pending: []*taskdomain.Task{{ID: "t1", UserID: "u1", Title: "x"}}}
	s := NewTaskReminderScheduler(repo, &fakeTokens{}, &fakeSender{}, time.Hour, zaptest.NewLogger(t))

	s.Start(context.Background())
	s.Stop()
	s.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []string{"t1"}, repo.marked)
}

func TestStart_WithoutSenderIsIdle(t *testing.T) {
	repo := &fakeRepo{pending: []*taskdomain.Task{{ID: "t1", UserID: "u1"}}}
	s := NewTaskReminderScheduler(repo, &fakeTokens{}, nil, time.Minute, zaptest.NewLogger(t))

	s.Start(context.Background())
	s.Stop()
	assert.Empty(t, repo.marked)
}
