// Package gcalendar is the Calendar provider client. Like the mail client it
// is stateless: credentials come with every call.
package gcalendar

import (
	"context"
	"fmt"
	"time"

	caldomain "privatezone-backend/internal/calendar/domain"
	"privatezone-backend/pkg/gauth"

	"google.golang.org/api/calendar/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	providerName = "calendar"
	calendarID   = "primary"
	dateLayout   = "2006-01-02"
	maxPageSize  = 250
)

var Scopes = []string{
	calendar.CalendarScope,
	oauth2api.UserinfoEmailScope,
}

type Service struct {
	oauth *gauth.OAuth
	opts  []option.ClientOption
}

func NewService(oauth *gauth.OAuth, opts ...option.ClientOption) *Service {
	return &Service{
		oauth: oauth.WithScopes(Scopes...),
		opts:  opts,
	}
}

func (s *Service) OAuth() *gauth.OAuth { return s.oauth }

func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*gauth.Token, error) {
	return s.oauth.RefreshAccessToken(ctx, refreshToken)
}

func (s *Service) newCalendar(ctx context.Context, creds gauth.Credentials) (*calendar.Service, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(s.oauth.Client(ctx, creds))}, s.opts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

// ListEvents returns single (expanded) events of the primary calendar that
// overlap [timeMin, timeMax), ordered by start time.
func (s *Service) ListEvents(ctx context.Context, creds gauth.Credentials, timeMin, timeMax time.Time, max int64) ([]caldomain.RemoteEvent, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newCalendar(ctx, creds)
	if err != nil {
		return nil, err
	}

	var events []caldomain.RemoteEvent
	pageToken := ""
	for int64(len(events)) < max {
		pageSize := max - int64(len(events))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := srv.Events.List(calendarID).
			TimeMin(timeMin.UTC().Format(time.RFC3339)).
			TimeMax(timeMax.UTC().Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, gauth.Classify(providerName, err)
		}
		for _, item := range resp.Items {
			events = append(events, normalize(item))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Items) == 0 {
			break
		}
	}

	if int64(len(events)) > max {
		events = events[:max]
	}
	return events, nil
}

func (s *Service) CreateEvent(ctx context.Context, creds gauth.Credentials, in caldomain.EventInput) (*caldomain.RemoteEvent, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newCalendar(ctx, creds)
	if err != nil {
		return nil, err
	}

	created, err := srv.Events.Insert(calendarID, toAPIEvent(in)).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}
	ev := normalize(created)
	return &ev, nil
}

func (s *Service) UpdateEvent(ctx context.Context, creds gauth.Credentials, eventID string, in caldomain.EventInput) (*caldomain.RemoteEvent, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newCalendar(ctx, creds)
	if err != nil {
		return nil, err
	}

	updated, err := srv.Events.Update(calendarID, eventID, toAPIEvent(in)).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}
	ev := normalize(updated)
	return &ev, nil
}

func (s *Service) DeleteEvent(ctx context.Context, creds gauth.Credentials, eventID string) error {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newCalendar(ctx, creds)
	if err != nil {
		return err
	}

	return gauth.Classify(providerName, srv.Events.Delete(calendarID, eventID).Context(ctx).Do())
}

// ListCalendars is the cheap probe used by the integration test endpoint.
func (s *Service) ListCalendars(ctx context.Context, creds gauth.Credentials) ([]caldomain.Calendar, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newCalendar(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := srv.CalendarList.List().MaxResults(10).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}

	calendars := make([]caldomain.Calendar, 0, len(resp.Items))
	for _, item := range resp.Items {
		calendars = append(calendars, caldomain.Calendar{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

func normalize(ev *calendar.Event) caldomain.RemoteEvent {
	start, allDay := parseEventTime(ev.Start)
	end, _ := parseEventTime(ev.End)
	return caldomain.RemoteEvent{
		ExternalID:  ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Status:      ev.Status,
		HTMLLink:    ev.HtmlLink,
	}
}

// parseEventTime reads either a dateTime or an all-day date. Unparseable
// values yield nil.
func parseEventTime(edt *calendar.EventDateTime) (*time.Time, bool) {
	if edt == nil {
		return nil, false
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			t = t.UTC()
			return &t, false
		}
		return nil, false
	}
	if edt.Date != "" {
		if t, err := time.Parse(dateLayout, edt.Date); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func toAPIEvent(in caldomain.EventInput) *calendar.Event {
	ev := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
	}
	if in.AllDay {
		ev.Start = &calendar.EventDateTime{Date: in.Start.Format(dateLayout)}
		ev.End = &calendar.EventDateTime{Date: in.End.Format(dateLayout)}
	} else {
		ev.Start = &calendar.EventDateTime{DateTime: in.Start.UTC().Format(time.RFC3339)}
		ev.End = &calendar.EventDateTime{DateTime: in.End.UTC().Format(time.RFC3339)}
	}
	return ev
}
