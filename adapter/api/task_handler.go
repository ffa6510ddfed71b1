package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/todo/internal/tasks/application"
	"github.com/felixgeelhaar/todo/internal/tasks/application/commands"
	"github.com/felixgeelhaar/todo/internal/tasks/application/queries"
	"github.com/felixgeelhaar/todo/internal/tasks/domain/task"
)

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	tasks  application.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks application.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{tasks: tasks, logger: logger}
}

// SaveTaskRequest is the body of create and replace calls.
type SaveTaskRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// SaveTaskResponse reports the saved id.
type SaveTaskResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// TaskListResponse carries the load state with the tasks.
type TaskListResponse struct {
	State string            `json:"state"`
	Tasks []queries.TaskDTO `json:"tasks"`
}

// DeletedResponse reports how many tasks a bulk delete removed.
type DeletedResponse struct {
	Deleted int `json:"deleted"`
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	filter, err := task.ParseFilter(c.Query("filter"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, ok := h.await(c, h.tasks.GetTasks(c.Request.Context(), filter))
	if !ok {
		return
	}
	tasks := result.Tasks
	if tasks == nil {
		tasks = []queries.TaskDTO{}
	}
	c.JSON(http.StatusOK, TaskListResponse{State: result.State.String(), Tasks: tasks})
}

// Get handles GET /api/v1/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	result, ok := h.await(c, h.tasks.GetTask(c.Request.Context(), c.Param("id")))
	if !ok {
		return
	}
	if result.State == queries.LoadStateEmpty || len(result.Tasks) == 0 {
		abortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, result.Tasks[0])
}

// Create handles POST /api/v1/tasks. A body id upserts that task.
func (h *TaskHandler) Create(c *gin.Context) {
	var req SaveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: err.Error()})
		return
	}
	h.save(c, req)
}

// Replace handles PUT /api/v1/tasks/:id.
func (h *TaskHandler) Replace(c *gin.Context) {
	var req SaveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: err.Error()})
		return
	}
	req.ID = c.Param("id")
	h.save(c, req)
}

func (h *TaskHandler) save(c *gin.Context, req SaveTaskRequest) {
	result, err := h.tasks.SaveTask(c.Request.Context(), commands.SaveTaskCommand{
		TaskID:      req.ID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
		c.Header("Location", "/api/v1/tasks/"+result.TaskID)
	}
	c.JSON(status, SaveTaskResponse{ID: result.TaskID, Created: result.Created})
}

// Complete handles POST /api/v1/tasks/:id/complete.
func (h *TaskHandler) Complete(c *gin.Context) {
	h.noContent(c, h.tasks.CompleteTask(c.Request.Context(), c.Param("id")))
}

// Activate handles POST /api/v1/tasks/:id/activate.
func (h *TaskHandler) Activate(c *gin.Context) {
	h.noContent(c, h.tasks.ActivateTask(c.Request.Context(), c.Param("id")))
}

// Delete handles DELETE /api/v1/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	h.noContent(c, h.tasks.DeleteTask(c.Request.Context(), c.Param("id")))
}

// ClearCompleted handles POST /api/v1/tasks/clear-completed.
func (h *TaskHandler) ClearCompleted(c *gin.Context) {
	n, err := h.tasks.ClearCompletedTasks(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

// DeleteAll handles DELETE /api/v1/tasks.
func (h *TaskHandler) DeleteAll(c *gin.Context) {
	n, err := h.tasks.DeleteAllTasks(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

func (h *TaskHandler) noContent(c *gin.Context, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// await waits for the single load result. Unavailable loads and loads
// cut short by the client answer 503.
func (h *TaskHandler) await(c *gin.Context, results <-chan queries.LoadResult) (queries.LoadResult, bool) {
	result, ok := <-results
	switch {
	case !ok, result.State == queries.LoadStateReset:
		abortWithError(c, ErrUnavailable)
		return result, false
	case result.State == queries.LoadStateUnavailable:
		h.logger.WarnContext(c.Request.Context(), "task load unavailable", "error", result.Err)
		abortWithError(c, ErrUnavailable)
		return result, false
	}
	return result, true
}
