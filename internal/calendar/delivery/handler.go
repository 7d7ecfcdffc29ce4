package delivery

import (
	"errors"
	"io"
	"net/http"
	"time"

	caldto "privatezone-backend/internal/calendar/dto"
	"privatezone-backend/internal/calendar/usecase"
	"privatezone-backend/internal/errs"
	"privatezone-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	calendarUsecase usecase.CalendarUsecase
}

func NewCalendarHandler(calendarUsecase usecase.CalendarUsecase) *CalendarHandler {
	return &CalendarHandler{calendarUsecase: calendarUsecase}
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	from, err := caldto.ParseTime(start)
	if err != nil {
		return time.Time{}, time.Time{}, errs.Validation("start: %s", err.Error())
	}
	to, err := caldto.ParseTime(end)
	if err != nil {
		return time.Time{}, time.Time{}, errs.Validation("end: %s", err.Error())
	}
	return from, to, nil
}

// POST /api/calendar/sync
func (h *CalendarHandler) Sync(c *gin.Context) {
	var req caldto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err)
		return
	}
	start, end, err := parseWindow(req.Start, req.End)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.calendarUsecase.Sync(c.Request.Context(), c.GetString("userID"), usecase.SyncOptions{
		Start:      start,
		End:        end,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"syncedCount":  res.SyncedCount,
		"totalFetched": res.TotalFetched,
		"failedCount":  res.FailedCount,
		"events":       res.Events,
	})
}

// GET /api/calendar/events?start=&end=
func (h *CalendarHandler) ListRemote(c *gin.Context) {
	start, end, err := parseWindow(c.Query("start"), c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}

	events, err := h.calendarUsecase.ListRemote(c.Request.Context(), c.GetString("userID"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"events": events})
}

// GET /api/calendar/local-events?start=&end=
func (h *CalendarHandler) ListLocal(c *gin.Context) {
	start, end, err := parseWindow(c.Query("start"), c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var from, to *time.Time
	if !start.IsZero() {
		from = &start
	}
	if !end.IsZero() {
		to = &end
	}

	events, err := h.calendarUsecase.ListLocal(c.Request.Context(), c.GetString("userID"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"events": events})
}

// GET /api/calendar/calendars
func (h *CalendarHandler) Calendars(c *gin.Context) {
	calendars, err := h.calendarUsecase.Calendars(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"calendars": calendars})
}

func bindEvent(c *gin.Context) (*caldto.EventRequest, bool) {
	var req caldto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return nil, false
	}
	return &req, true
}

// POST /api/calendar/events
func (h *CalendarHandler) Create(c *gin.Context) {
	req, ok := bindEvent(c)
	if !ok {
		return
	}
	in, err := req.Input()
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	event, err := h.calendarUsecase.Create(c.Request.Context(), c.GetString("userID"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"event": event})
}

// PUT /api/calendar/events/:eventId
func (h *CalendarHandler) Update(c *gin.Context) {
	req, ok := bindEvent(c)
	if !ok {
		return
	}
	in, err := req.Input()
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	event, err := h.calendarUsecase.Update(c.Request.Context(), c.GetString("userID"), c.Param("eventId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"event": event})
}

// DELETE /api/calendar/events/:eventId
func (h *CalendarHandler) Delete(c *gin.Context) {
	if err := h.calendarUsecase.Delete(c.Request.Context(), c.GetString("userID"), c.Param("eventId")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
