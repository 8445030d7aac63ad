package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tasktrack/backend/internal/models"
	"tasktrack/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

// RegisterRoutes mounts the task API on rg. seedGuard, if non-nil, runs
// before the seed handler.
func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup, seedGuard gin.HandlerFunc) {
	tasks := rg.Group("/tasks")
	tasks.GET("", h.GetTasks)
	tasks.POST("", h.CreateTask)
	tasks.GET("/status/options", h.GetStatusOptions)
	tasks.GET("/priority/options", h.GetPriorityOptions)
	if seedGuard != nil {
		tasks.POST("/seed", seedGuard, h.SeedTasks)
	} else {
		tasks.POST("/seed", h.SeedTasks)
	}
	tasks.GET("/:id", h.GetTaskByID)
	tasks.GET("/:id/history", h.GetTaskHistory)
	tasks.PATCH("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
}

type createTaskRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"max=500"`
	Status      string   `json:"status" binding:"omitempty,oneof=Pending 'In Progress' Completed"`
	Priority    string   `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	DueDate     string   `json:"dueDate" binding:"required"`
	Tags        []string `json:"tags" binding:"omitempty,dive,max=64"`
}

type updateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description" binding:"omitempty,max=500"`
	Status      *string   `json:"status" binding:"omitempty,oneof=Pending 'In Progress' Completed"`
	Priority    *string   `json:"priority" binding:"omitempty,oneof=Low Medium High"`
	DueDate     *string   `json:"dueDate"`
	Tags        *[]string `json:"tags" binding:"omitempty,dive,max=64"`
}

func (r updateTaskRequest) toPatch() (models.TaskPatch, error) {
	patch := models.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Tags:        r.Tags,
	}
	if r.Status != nil {
		status := models.TaskStatus(*r.Status)
		patch.Status = &status
	}
	if r.Priority != nil {
		priority := models.TaskPriority(*r.Priority)
		patch.Priority = &priority
	}
	if r.DueDate != nil {
		due, err := models.ParseDate(*r.DueDate)
		if err != nil {
			return patch, models.NewValidationError(models.FieldDueDate, "Due date must be a valid date")
		}
		patch.DueDate = &due
	}
	return patch, nil
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input createTaskRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		handleBindError(c, err)
		return
	}

	dueDate, err := models.ParseDate(input.DueDate)
	if err != nil {
		handleTaskError(c, models.NewValidationError(models.FieldDueDate, "Due date must be a valid date"))
		return
	}

	task := models.NewTaskFromInput(
		input.Title,
		input.Description,
		models.TaskStatus(input.Status),
		models.TaskPriority(input.Priority),
		dueDate,
		input.Tags,
	)
	created, err := h.taskService.CreateTask(c.Request.Context(), h.db, task)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	filter, err := services.BuildFilter(c.Request.URL.Query())
	if err != nil {
		handleTaskError(c, err)
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), h.db, filter)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	task, err := h.taskService.GetTaskByID(c.Request.Context(), h.db, id)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTaskHistory(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	history, err := h.taskService.GetTaskHistory(c.Request.Context(), h.db, id)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	if history == nil {
		history = []models.ChangeEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var input updateTaskRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		handleBindError(c, err)
		return
	}
	patch, err := input.toPatch()
	if err != nil {
		handleTaskError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), h.db, id, patch)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	if err := h.taskService.DeleteTask(c.Request.Context(), h.db, id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) GetStatusOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statusOptions": models.TaskStatuses})
}

func (h *TaskHandler) GetPriorityOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"priorityOptions": models.TaskPriorities})
}

func (h *TaskHandler) SeedTasks(c *gin.Context) {
	result, err := h.taskService.SeedTasks(c.Request.Context(), h.db)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": result.Message})
}

// Welcome answers the API root.
func Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to Task Manager API"})
}

// parseTaskID writes a 404 for ids that are not UUIDs: no task can have one.
func parseTaskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", "Task not found")
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}

func handleBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		respondError(c, http.StatusBadRequest, "validation_error", bindingMessage(verrs[0]))
		return
	}
	respondError(c, http.StatusBadRequest, "invalid_request", "Request body is malformed")
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Title":
		return "Title is required"
	case "Description":
		return "Description cannot exceed 500 characters"
	case "Status":
		return fmt.Sprintf("%v is not a valid status", deref(fe.Value()))
	case "Priority":
		return fmt.Sprintf("%v is not a valid priority", deref(fe.Value()))
	case "DueDate":
		return "Due date is required"
	}
	if fe.Tag() == "max" {
		return "Tags cannot exceed 64 characters"
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func deref(v interface{}) interface{} {
	if s, ok := v.(*string); ok && s != nil {
		return *s
	}
	return v
}

func handleTaskError(c *gin.Context, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, "validation_error", verr.Message)
	case errors.Is(err, models.ErrInvalidTransition):
		respondError(c, http.StatusBadRequest, "invalid_transition", "Cannot change status directly from Pending to Completed")
	case errors.Is(err, models.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, "not_found", "Task not found")
	case errors.Is(err, services.ErrStoreNotEmpty):
		respondError(c, http.StatusBadRequest, "store_not_empty", "Database is not empty. Seeding is only allowed on an empty database.")
	default:
		slog.Error("task request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		respondError(c, http.StatusInternalServerError, "internal_error", "failed to process task request")
	}
}
