package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	caldomain "privatezone-backend/internal/calendar/domain"
	"privatezone-backend/internal/calendar/repository"
	"privatezone-backend/internal/errs"
	intdomain "privatezone-backend/internal/integration/domain"
	"privatezone-backend/internal/integration/tokenguard"
	"privatezone-backend/pkg/events"
	"privatezone-backend/pkg/gauth"

	"go.uber.org/zap"
)

const (
	defaultWindow        = 30 * 24 * time.Hour
	defaultSyncMax int64 = 250
	maxSyncMax     int64 = 2500
)

var errMissingExternalID = errors.New("event has no id")

type calendarUsecase struct {
	eventRepo repository.EventRepository
	calendar  CalendarClient
	creds     CredentialSource
	history   SyncRecorder
	publisher events.Publisher
	now       func() time.Time
	logger    *zap.Logger
}

func NewCalendarUsecase(
	eventRepo repository.EventRepository,
	calendar CalendarClient,
	creds CredentialSource,
	history SyncRecorder,
	publisher events.Publisher,
	logger *zap.Logger,
) CalendarUsecase {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &calendarUsecase{
		eventRepo: eventRepo,
		calendar:  calendar,
		creds:     creds,
		history:   history,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("calendar"),
	}
}

func (u *calendarUsecase) credentials(ctx context.Context, userID string) (gauth.Credentials, error) {
	rec, err := u.creds.Credentials(ctx, userID, intdomain.ProviderCalendar)
	if err != nil {
		return gauth.Credentials{}, err
	}
	return tokenguard.ClientCredentials(rec), nil
}

func (u *calendarUsecase) window(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() {
		start = u.now()
	}
	if end.IsZero() {
		end = start.Add(defaultWindow)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errs.Validation("end must be after start")
	}
	return start, end, nil
}

func (u *calendarUsecase) Sync(ctx context.Context, userID string, opts SyncOptions) (*SyncResult, error) {
	start, end, err := u.window(opts.Start, opts.End)
	if err != nil {
		return nil, err
	}
	max := opts.MaxResults
	if max <= 0 {
		max = defaultSyncMax
	}
	if max > maxSyncMax {
		max = maxSyncMax
	}
	log := u.logger.With(zap.String("user_id", userID), zap.String("provider", string(intdomain.ProviderCalendar)))

	creds, err := u.credentials(ctx, userID)
	if err != nil {
		log.Warn("sync aborted: no usable credentials", zap.Error(err))
		return nil, err
	}

	remote, err := u.calendar.ListEvents(ctx, creds, start, end, max)
	if err != nil {
		log.Error("sync aborted", zap.Error(err))
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	res := &SyncResult{
		TotalFetched: len(remote),
		Events:       make([]*caldomain.Event, 0, len(remote)),
	}
	for i := range remote {
		ev, err := u.reconcile(ctx, userID, remote[i])
		if err != nil {
			log.Warn("skip event", zap.String("external_id", remote[i].ExternalID), zap.Error(err))
			res.FailedCount++
			continue
		}
		res.Events = append(res.Events, ev)
	}
	res.SyncedCount = len(res.Events)

	now := u.now().UTC()
	outcome := intdomain.SyncOutcome{Synced: res.SyncedCount, Fetched: res.TotalFetched, Failed: res.FailedCount}
	if err := u.history.RecordSync(ctx, userID, intdomain.ProviderCalendar, outcome, now); err != nil {
		log.Warn("record sync history", zap.Error(err))
	}
	if err := u.publisher.PublishSync(ctx, events.SyncEvent{
		UserID:   userID,
		Kind:     string(intdomain.ProviderCalendar),
		Synced:   res.SyncedCount,
		Fetched:  res.TotalFetched,
		Failed:   res.FailedCount,
		SyncedAt: now,
	}); err != nil {
		log.Warn("publish sync event", zap.Error(err))
	}

	log.Info("calendar sync finished",
		zap.Int("synced", res.SyncedCount),
		zap.Int("fetched", res.TotalFetched),
		zap.Int("failed", res.FailedCount))
	return res, nil
}

// reconcile inserts an unseen event or refreshes status, times and link of a
// mirrored one.
func (u *calendarUsecase) reconcile(ctx context.Context, userID string, re caldomain.RemoteEvent) (*caldomain.Event, error) {
	if re.ExternalID == "" {
		return nil, errMissingExternalID
	}

	existing, err := u.eventRepo.FindByExternalID(ctx, userID, re.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		ev := newMirroredEvent(userID, re)
		if err := u.eventRepo.Create(ctx, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}

	caldomain.EventPatch{
		Status:   &re.Status,
		StartAt:  re.Start,
		EndAt:    re.End,
		HTMLLink: &re.HTMLLink,
	}.Apply(existing)
	existing.AllDay = re.AllDay

	if err := u.eventRepo.Save(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func newMirroredEvent(userID string, re caldomain.RemoteEvent) *caldomain.Event {
	externalID := re.ExternalID
	return &caldomain.Event{
		UserID:      userID,
		ExternalID:  &externalID,
		Source:      caldomain.SourceGoogleCalendar,
		Summary:     re.Summary,
		Description: re.Description,
		Location:    re.Location,
		StartAt:     re.Start,
		EndAt:       re.End,
		AllDay:      re.AllDay,
		Status:      re.Status,
		HTMLLink:    re.HTMLLink,
	}
}

func (u *calendarUsecase) ListRemote(ctx context.Context, userID string, start, end time.Time) ([]caldomain.RemoteEvent, error) {
	start, end, err := u.window(start, end)
	if err != nil {
		return nil, err
	}
	creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.calendar.ListEvents(ctx, creds, start, end, defaultSyncMax)
}

func (u *calendarUsecase) ListLocal(ctx context.Context, userID string, start, end *time.Time) ([]*caldomain.Event, error) {
	return u.eventRepo.List(ctx, userID, start, end)
}

func (u *calendarUsecase) Calendars(ctx context.Context, userID string) ([]caldomain.Calendar, error) {
	creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.calendar.ListCalendars(ctx, creds)
}

func validateInput(in caldomain.EventInput) error {
	if strings.TrimSpace(in.Summary) == "" {
		return errs.Validation("summary is required")
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return errs.Validation("start and end are required")
	}
	if in.AllDay {
		if in.End.Before(in.Start) {
			return errs.Validation("end must not be before start")
		}
		return nil
	}
	if !in.End.After(in.Start) {
		return errs.Validation("end must be after start")
	}
	return nil
}

func (u *calendarUsecase) Create(ctx context.Context, userID string, in caldomain.EventInput) (*caldomain.Event, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	created, err := u.calendar.CreateEvent(ctx, creds, in)
	if err != nil {
		return nil, err
	}
	return u.mirror(ctx, userID, *created)
}

func (u *calendarUsecase) Update(ctx context.Context, userID, eventID string, in caldomain.EventInput) (*caldomain.Event, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	creds, err := u.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated, err := u.calendar.UpdateEvent(ctx, creds, eventID, in)
	if err != nil {
		return nil, err
	}
	return u.mirror(ctx, userID, *updated)
}

// mirror writes the provider's copy of an event the user just created or
// edited. Unlike reconcile it overwrites content fields.
func (u *calendarUsecase) mirror(ctx context.Context, userID string, re caldomain.RemoteEvent) (*caldomain.Event, error) {
	if re.ExternalID == "" {
		return nil, errMissingExternalID
	}

	existing, err := u.eventRepo.FindByExternalID(ctx, userID, re.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("load mirrored event: %w", err)
	}

	ev := newMirroredEvent(userID, re)
	if existing == nil {
		err = u.eventRepo.Create(ctx, ev)
	} else {
		ev.ID = existing.ID
		ev.Source = existing.Source
		ev.CreatedAt = existing.CreatedAt
		err = u.eventRepo.Save(ctx, ev)
	}
	if err != nil {
		u.logger.Error("mirror event",
			zap.String("user_id", userID),
			zap.String("external_id", re.ExternalID),
			zap.Error(err))
		return nil, fmt.Errorf("store event: %w", err)
	}
	return ev, nil
}

func (u *calendarUsecase) Delete(ctx context.Context, userID, eventID string) error {
	creds, err := u.credentials(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.calendar.DeleteEvent(ctx, creds, eventID); err != nil {
		return err
	}
	if _, err := u.eventRepo.DeleteByExternalID(ctx, userID, eventID); err != nil {
		return fmt.Errorf("delete mirrored event: %w", err)
	}
	return nil
}
