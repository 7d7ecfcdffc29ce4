package domain

import "time"

type Source string

const (
	SourceUser           Source = "user"
	SourceGoogleCalendar Source = "google_calendar"
)

// Event is the local mirror of a calendar event.
type Event struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index;not null"`
	ExternalID  *string    `json:"external_id,omitempty"`
	Source      Source     `json:"source"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartAt     *time.Time `json:"start"`
	EndAt       *time.Time `json:"end"`
	AllDay      bool       `json:"all_day"`
	Status      string     `json:"status"`
	HTMLLink    string     `json:"html_link"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Event) TableName() string { return "calendar_events" }

// EventPatch holds the fields a re-sync refreshes on an existing row.
type EventPatch struct {
	Status   *string
	StartAt  *time.Time
	EndAt    *time.Time
	HTMLLink *string
}

func (p EventPatch) Apply(e *Event) {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.StartAt != nil {
		t := *p.StartAt
		e.StartAt = &t
	}
	if p.EndAt != nil {
		t := *p.EndAt
		e.EndAt = &t
	}
	if p.HTMLLink != nil {
		e.HTMLLink = *p.HTMLLink
	}
}

// RemoteEvent is a Google Calendar event normalized to local fields.
type RemoteEvent struct {
	ExternalID  string     `json:"id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	AllDay      bool       `json:"allDay"`
	Status      string     `json:"status"`
	HTMLLink    string     `json:"htmlLink"`
}

// EventInput is what the user submits to create or update an event. For
// all-day events only the date part of Start and End is used.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

type Calendar struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}
