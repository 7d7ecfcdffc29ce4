package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	caldomain "privatezone-backend/internal/calendar/domain"
	"privatezone-backend/internal/calendar/usecase"
	"privatezone-backend/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalendarUsecase struct {
	usecase.CalendarUsecase

	syncOpts  usecase.SyncOptions
	created   caldomain.EventInput
	from, to  *time.Time
	deleteErr error
}

func (f *fakeCalendarUsecase) Sync(_ context.Context, _ string, opts usecase.SyncOptions) (*usecase.SyncResult, error) {
	f.syncOpts = opts
	return &usecase.SyncResult{SyncedCount: 2, TotalFetched: 2}, nil
}

func (f *fakeCalendarUsecase) ListLocal(_ context.Context, _ string, from, to *time.Time) ([]*caldomain.Event, error) {
	f.from, f.to = from, to
	return []*caldomain.Event{}, nil
}

func (f *fakeCalendarUsecase) Create(_ context.Context, _ string, in caldomain.EventInput) (*caldomain.Event, error) {
	f.created = in
	return &caldomain.Event{ID: "ev1", Summary: in.Summary}, nil
}

func (f *fakeCalendarUsecase) Delete(context.Context, string, string) error {
	return f.deleteErr
}

func newRouter(uc usecase.CalendarUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCalendarHandler(uc)
	r.Use(func(c *gin.Context) { c.Set("userID", "u1") })

	r.POST("/api/calendar/sync", h.Sync)
	r.GET("/api/calendar/local-events", h.ListLocal)
	r.POST("/api/calendar/events", h.Create)
	r.DELETE("/api/calendar/events/:eventId", h.Delete)
	return r
}

func TestSync_ParsesWindow(t *testing.T) {
	uc := &fakeCalendarUsecase{}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/calendar/sync",
		strings.NewReader(`{"start":"2026-05-01T00:00:00Z","end":"2026-06-01T00:00:00Z","maxResults":20}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), uc.syncOpts.Start)
	assert.Equal(t, int64(20), uc.syncOpts.MaxResults)
	assert.Contains(t, w.Body.String(), `"syncedCount":2`)
}

func TestSync_BadStart(t *testing.T) {
	r := newRouter(&fakeCalendarUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/api/calendar/sync", strings.NewReader(`{"start":"soon"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListLocal_OpenBounds(t *testing.T) {
	uc := &fakeCalendarUsecase{}
	r := newRouter(uc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calendar/local-events?start=2026-05-01T00:00:00Z", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, uc.from)
	assert.Nil(t, uc.to)
}

func TestCreate_AllDay(t *testing.T) {
	uc := &fakeCalendarUsecase{}
	r := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/api/calendar/events",
		strings.NewReader(`{"title":"Trip","start":"2026-05-01","end":"2026-05-03","allDay":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, uc.created.AllDay)
	assert.Equal(t, "Trip", uc.created.Summary)
}

func TestDelete_RemoteNotFound(t *testing.T) {
	r := newRouter(&fakeCalendarUsecase{deleteErr: errs.Remote("calendar", http.StatusNotFound, assert.AnError)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/calendar/events/g1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"providerStatus":404`)
}
