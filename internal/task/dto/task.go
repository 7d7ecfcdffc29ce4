package dto

import (
	"fmt"
	"time"

	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/internal/task/usecase"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

type CreateTaskRequest struct {
	Text       string  `json:"text" binding:"required"`
	Notes      string  `json:"notes"`
	DueDate    *string `json:"dueDate"`
	ReminderAt *string `json:"reminderAt"`
}

func (r CreateTaskRequest) Input() (usecase.TaskInput, error) {
	due, _, err := parseOptional(r.DueDate)
	if err != nil {
		return usecase.TaskInput{}, fmt.Errorf("dueDate: %w", err)
	}
	reminder, _, err := parseOptional(r.ReminderAt)
	if err != nil {
		return usecase.TaskInput{}, fmt.Errorf("reminderAt: %w", err)
	}
	return usecase.TaskInput{Title: r.Text, Notes: r.Notes, DueDate: due, ReminderAt: reminder}, nil
}

// UpdateTaskRequest is a partial update. An empty dueDate or reminderAt
// string clears the field.
type UpdateTaskRequest struct {
	Text       *string `json:"text"`
	Notes      *string `json:"notes"`
	Completed  *bool   `json:"completed"`
	DueDate    *string `json:"dueDate"`
	ReminderAt *string `json:"reminderAt"`
}

func (r UpdateTaskRequest) Patch() (taskdomain.TaskPatch, error) {
	patch := taskdomain.TaskPatch{Title: r.Text, Notes: r.Notes, Completed: r.Completed}

	var err error
	if patch.DueDate, patch.ClearDueDate, err = parseOptional(r.DueDate); err != nil {
		return taskdomain.TaskPatch{}, fmt.Errorf("dueDate: %w", err)
	}
	if patch.ReminderAt, patch.ClearReminder, err = parseOptional(r.ReminderAt); err != nil {
		return taskdomain.TaskPatch{}, fmt.Errorf("reminderAt: %w", err)
	}
	return patch, nil
}

type BulkRequest struct {
	Action  taskdomain.BulkAction `json:"action" binding:"required"`
	TaskIDs []string              `json:"taskIds" binding:"required"`
}

type SyncRequest struct {
	MaxResults int64 `json:"maxResults"`
}

type TasksResponse struct {
	Tasks  []*taskdomain.Task `json:"tasks"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// parseOptional reports the parsed time, or cleared=true for a present but
// empty value. A nil pointer yields neither.
func parseOptional(s *string) (t *time.Time, cleared bool, err error) {
	if s == nil {
		return nil, false, nil
	}
	if *s == "" {
		return nil, true, nil
	}
	for _, layout := range timeLayouts {
		if parsed, perr := time.Parse(layout, *s); perr == nil {
			parsed = parsed.UTC()
			return &parsed, false, nil
		}
	}
	return nil, false, fmt.Errorf("invalid time %q", *s)
}
