package delivery

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"privatezone-backend/internal/errs"
	taskdomain "privatezone-backend/internal/task/domain"
	taskdto "privatezone-backend/internal/task/dto"
	"privatezone-backend/internal/task/repository"
	"privatezone-backend/internal/task/usecase"
	"privatezone-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{taskUsecase: taskUsecase}
}

// List returns the user's tasks
// GET /api/tasks?completed=true|false&limit=50&offset=0
func (h *TaskHandler) List(c *gin.Context) {
	filter := repository.TaskFilter{Limit: 50}
	if v := c.Query("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			response.Error(c, errs.Validation("completed must be true or false"))
			return
		}
		filter.Completed = &completed
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}

	tasks, total, err := h.taskUsecase.List(c.Request.Context(), c.GetString("userID"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if tasks == nil {
		tasks = []*taskdomain.Task{}
	}

	c.JSON(http.StatusOK, taskdto.TasksResponse{
		Tasks:  tasks,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.taskUsecase.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"task": task})
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req taskdto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	in, err := req.Input()
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	task, err := h.taskUsecase.Create(c.Request.Context(), c.GetString("userID"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"task": task})
}

// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req taskdto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err)
		return
	}
	patch, err := req.Patch()
	if err != nil {
		response.BadRequest(c, err)
		return
	}
	h.update(c, patch)
}

// SetCompleted is a convenience endpoint to just toggle completion
// PATCH /api/tasks/:id/completed
func (h *TaskHandler) SetCompleted(c *gin.Context) {
	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	h.update(c, taskdomain.TaskPatch{Completed: req.Completed})
}

func (h *TaskHandler) update(c *gin.Context, patch taskdomain.TaskPatch) {
	task, err := h.taskUsecase.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"task": task})
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.taskUsecase.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// POST /api/tasks/bulk
func (h *TaskHandler) Bulk(c *gin.Context) {
	var req taskdto.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	affected, err := h.taskUsecase.Bulk(c.Request.Context(), c.GetString("userID"), req.Action, req.TaskIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"affected": affected})
}

// POST /api/tasks/sync
func (h *TaskHandler) Sync(c *gin.Context) {
	var req taskdto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err)
		return
	}

	res, err := h.taskUsecase.Sync(c.Request.Context(), c.GetString("userID"), usecase.SyncOptions{MaxResults: req.MaxResults})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"syncedCount":  res.SyncedCount,
		"totalFetched": res.TotalFetched,
		"failedCount":  res.FailedCount,
		"tasks":        res.Tasks,
	})
}

// POST /api/tasks/:id/push
func (h *TaskHandler) Push(c *gin.Context) {
	task, err := h.taskUsecase.Push(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"task": task, "googleTaskId": task.ExternalID})
}
