package repository

import (
	"context"
	"testing"
	"time"

	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/pkg/database/dbtest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTaskRepository_FindByIDScopedToUser(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE id = \$1 AND user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	task, err := repo.FindByID(context.Background(), "u2", "t1")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestTaskRepository_FindByExternalID(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE user_id = \$1 AND external_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "external_id", "title", "completed"}).
			AddRow("t1", "u1", "g1", "Buy milk", true))

	task, err := repo.FindByExternalID(context.Background(), "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Buy milk", task.Title)
	assert.True(t, task.Completed)
}

func TestTaskRepository_ListFiltersAndCounts(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)
	done := false

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE user_id = \$1 AND completed = \$2`).
		WithArgs("u1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE user_id = \$1 AND completed = \$2 ORDER BY CASE WHEN due_date IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("t1", "u1").AddRow("t2", "u1"))

	tasks, total, err := repo.List(context.Background(), "u1", TaskFilter{Completed: &done, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, tasks, 2)
}

func TestTaskRepository_Create(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectExec(`INSERT INTO "tasks"`).WillReturnResult(sqlmock.NewResult(0, 1))

	task := &taskdomain.Task{UserID: "u1", Title: "Write report"}
	require.NoError(t, repo.Create(context.Background(), task))
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, taskdomain.SourceUser, task.Source)
}

func TestTaskRepository_Delete(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectExec(`DELETE FROM "tasks" WHERE id = \$1 AND user_id = \$2`).
		WithArgs("t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTaskRepository_BulkComplete(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectExec(`UPDATE "tasks" SET "completed"=\$1,"updated_at"=\$2 WHERE user_id = \$3 AND id IN \(\$4,\$5\)`).
		WithArgs(true, sqlmock.AnyArg(), "u1", "t1", "t2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.Bulk(context.Background(), "u1", []string{"t1", "t2"}, taskdomain.BulkComplete)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTaskRepository_BulkDelete(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectExec(`DELETE FROM "tasks" WHERE user_id = \$1 AND id IN \(\$2\)`).
		WithArgs("u1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Bulk(context.Background(), "u1", []string{"t1"}, taskdomain.BulkDelete)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaskRepository_BulkEmptyIsNoop(t *testing.T) {
	db, _ := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	n, err := repo.Bulk(context.Background(), "u1", nil, taskdomain.BulkDelete)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTaskRepository_Reminders(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE reminder_at <= \$1 AND reminder_sent = \$2 AND completed = \$3`).
		WithArgs(now, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}).AddRow("t1", "u1", "Call mom"))
	mock.ExpectExec(`UPDATE "tasks" SET "reminder_sent"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(true, sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tasks, err := repo.FindPendingReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NoError(t, repo.MarkReminderSent(context.Background(), tasks[0].ID))
}

func TestTaskRepository_SaveScopedByUser(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewGormTaskRepository(db)

	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE user_id = \$[0-9]+ AND .*"id" = \$[0-9]+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE user_id = \$[0-9]+ AND .*"id" = \$[0-9]+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Save(context.Background(), &taskdomain.Task{ID: "x1", UserID: "u1", Title: "Pay rent", Completed: true}))
	err := repo.Save(context.Background(), &taskdomain.Task{ID: "x1", UserID: "intruder", Title: "Pay rent", Completed: true})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
