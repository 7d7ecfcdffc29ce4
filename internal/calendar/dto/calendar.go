package dto

import (
	"fmt"
	"time"

	caldomain "privatezone-backend/internal/calendar/domain"
)

// Layouts accepted for start/end. The last one is what an HTML
// datetime-local input submits.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

const dateLayout = "2006-01-02"

type SyncRequest struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	MaxResults int64  `json:"maxResults"`
}

type EventRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Start       string `json:"start" binding:"required"`
	End         string `json:"end" binding:"required"`
	AllDay      bool   `json:"allDay"`
}

// Input converts the request. All-day events take plain dates.
func (r EventRequest) Input() (caldomain.EventInput, error) {
	parse := ParseTime
	if r.AllDay {
		parse = ParseDate
	}
	start, err := parse(r.Start)
	if err != nil {
		return caldomain.EventInput{}, fmt.Errorf("start: %w", err)
	}
	end, err := parse(r.End)
	if err != nil {
		return caldomain.EventInput{}, fmt.Errorf("end: %w", err)
	}
	return caldomain.EventInput{
		Summary:     r.Title,
		Description: r.Description,
		Location:    r.Location,
		Start:       start,
		End:         end,
		AllDay:      r.AllDay,
	}, nil
}

// ParseTime accepts RFC 3339 and zone-less local layouts (read as UTC).
// An empty string yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// ParseDate accepts YYYY-MM-DD or a full timestamp, keeping only the date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := ParseTime(s)
	if err != nil || t.IsZero() {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
