package domain

import "time"

// Source tells where a task lives besides the local database.
type Source string

const (
	SourceUser        Source = "user"
	SourceGoogleTasks Source = "google_tasks"
)

// Task is a to-do item, created locally or mirrored from Google Tasks
type Task struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"index;not null"`
	ExternalID   *string    `json:"external_id,omitempty"` // Google Tasks id once pushed or synced
	Source       Source     `json:"source"`
	Title        string     `json:"text" gorm:"not null"`
	Notes        string     `json:"notes,omitempty"`
	Completed    bool       `json:"completed"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderAt   *time.Time `json:"reminder_at,omitempty"` // When to send FCM reminder
	ReminderSent bool       `json:"reminder_sent"`         // Track if reminder was sent
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }

// TaskPatch is a partial update. Nil fields are left untouched; ClearDueDate
// and ClearReminder drop the respective timestamps.
type TaskPatch struct {
	Title         *string
	Notes         *string
	Completed     *bool
	DueDate       *time.Time
	ClearDueDate  bool
	ReminderAt    *time.Time
	ClearReminder bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Notes == nil && p.Completed == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.ReminderAt == nil && !p.ClearReminder
}

func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		d := *p.DueDate
		t.DueDate = &d
	}
	switch {
	case p.ClearReminder:
		t.ReminderAt = nil
		t.ReminderSent = false
	case p.ReminderAt != nil:
		r := *p.ReminderAt
		t.ReminderAt = &r
		t.ReminderSent = false // reschedule
	}
}

// RemoteTask is a Google Tasks item normalized to local fields.
type RemoteTask struct {
	ExternalID string     `json:"id"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	Completed  bool       `json:"completed"`
	Due        *time.Time `json:"due"`
}

type TaskList struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BulkAction is applied to many tasks at once.
type BulkAction string

const (
	BulkComplete   BulkAction = "complete"
	BulkUncomplete BulkAction = "uncomplete"
	BulkDelete     BulkAction = "delete"
)

func (a BulkAction) Valid() bool {
	switch a {
	case BulkComplete, BulkUncomplete, BulkDelete:
		return true
	}
	return false
}
