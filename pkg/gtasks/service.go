// Package gtasks is the Google Tasks provider client. Credentials are passed
// per call; all calls target the user's default task list.
package gtasks

import (
	"context"
	"fmt"
	"time"

	taskdomain "privatezone-backend/internal/task/domain"
	"privatezone-backend/pkg/gauth"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

const (
	providerName    = "tasks"
	defaultList     = "@default"
	statusCompleted = "completed"
	statusPending   = "needsAction"
	maxPageSize     = 100
)

var Scopes = []string{
	tasks.TasksScope,
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

func (s *Service) newTasks(ctx context.Context, creds gauth.Credentials) (*tasks.Service, error) {
	opts := append([]option.ClientOption{option.WithHTTPClient(s.oauth.Client(ctx, creds))}, s.opts...)
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Tasks service: %w", err)
	}
	return srv, nil
}

// ListTasks returns up to max tasks of the default list, completed ones
// included.
func (s *Service) ListTasks(ctx context.Context, creds gauth.Credentials, max int64) ([]taskdomain.RemoteTask, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newTasks(ctx, creds)
	if err != nil {
		return nil, err
	}

	var out []taskdomain.RemoteTask
	pageToken := ""
	for int64(len(out)) < max {
		pageSize := max - int64(len(out))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := srv.Tasks.List(defaultList).
			ShowCompleted(true).
			ShowHidden(true).
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
			out = append(out, normalize(item))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Items) == 0 {
			break
		}
	}

	if int64(len(out)) > max {
		out = out[:max]
	}
	return out, nil
}

func (s *Service) CreateTask(ctx context.Context, creds gauth.Credentials, t taskdomain.RemoteTask) (*taskdomain.RemoteTask, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newTasks(ctx, creds)
	if err != nil {
		return nil, err
	}

	created, err := srv.Tasks.Insert(defaultList, toAPITask(t)).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}
	rt := normalize(created)
	return &rt, nil
}

// ListTaskLists is the cheap probe used by the integration test endpoint.
func (s *Service) ListTaskLists(ctx context.Context, creds gauth.Credentials) ([]taskdomain.TaskList, error) {
	ctx, cancel := s.oauth.CallContext(ctx)
	defer cancel()

	srv, err := s.newTasks(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Tasklists.List().MaxResults(10).Context(ctx).Do()
	if err != nil {
		return nil, gauth.Classify(providerName, err)
	}

	lists := make([]taskdomain.TaskList, 0, len(resp.Items))
	for _, item := range resp.Items {
		lists = append(lists, taskdomain.TaskList{ID: item.Id, Title: item.Title})
	}
	return lists, nil
}

func normalize(t *tasks.Task) taskdomain.RemoteTask {
	rt := taskdomain.RemoteTask{
		ExternalID: t.Id,
		Title:      t.Title,
		Notes:      t.Notes,
		Completed:  t.Status == statusCompleted,
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			due = due.UTC()
			rt.Due = &due
		}
	}
	return rt
}

func toAPITask(t taskdomain.RemoteTask) *tasks.Task {
	body := &tasks.Task{
		Title:  t.Title,
		Notes:  t.Notes,
		Status: statusPending,
	}
	if t.Completed {
		body.Status = statusCompleted
	}
	if t.Due != nil {
		body.Due = t.Due.UTC().Format(time.RFC3339)
	}
	return body
}
