package usecase

import (
	"context"
	"time"

	caldomain "privatezone-backend/internal/calendar/domain"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/pkg/gauth"
)

// CalendarUsecase works against the user's primary Google calendar and keeps
// a local mirror of the events it sees or writes.
type CalendarUsecase interface {
	Sync(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error)
	// ListRemote reads events straight from Google without touching the mirror.
	ListRemote(ctx context.Context, userID string, start, end time.Time) ([]caldomain.RemoteEvent, error)
	ListLocal(ctx context.Context, userID string, start, end *time.Time) ([]*caldomain.Event, error)
	Calendars(ctx context.Context, userID string) ([]caldomain.Calendar, error)
	Create(ctx context.Context, userID string, in caldomain.EventInput) (*caldomain.Event, error)
	Update(ctx context.Context, userID, eventID string, in caldomain.EventInput) (*caldomain.Event, error)
	Delete(ctx context.Context, userID, eventID string) error
}

// CalendarClient is the Google Calendar provider client. *gcalendar.Service
// implements it.
type CalendarClient interface {
	ListEvents(ctx context.Context, creds gauth.Credentials, timeMin, timeMax time.Time, max int64) ([]caldomain.RemoteEvent, error)
	CreateEvent(ctx context.Context, creds gauth.Credentials, in caldomain.EventInput) (*caldomain.RemoteEvent, error)
	UpdateEvent(ctx context.Context, creds gauth.Credentials, eventID string, in caldomain.EventInput) (*caldomain.RemoteEvent, error)
	DeleteEvent(ctx context.Context, creds gauth.Credentials, eventID string) error
	ListCalendars(ctx context.Context, creds gauth.Credentials) ([]caldomain.Calendar, error)
}

type CredentialSource interface {
	Credentials(ctx context.Context, userID string, provider intdomain.Provider) (*intdomain.CredentialRecord, error)
}

type SyncRecorder interface {
	RecordSync(ctx context.Context, userID string, provider intdomain.Provider, outcome intdomain.SyncOutcome, at time.Time) error
}

// SyncOptions selects the window to mirror. Zero times mean now and
// now+30 days.
type SyncOptions struct {
	Start      time.Time
	End        time.Time
	MaxResults int64
}

type SyncResult struct {
	SyncedCount  int                `json:"syncedCount"`
	TotalFetched int                `json:"totalFetched"`
	FailedCount  int                `json:"failedCount"`
	Events       []*caldomain.Event `json:"events"`
}
