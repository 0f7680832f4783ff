package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTask creates a task owned by the authenticated user.
// A creatorId in the body is ignored.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	type CreateTaskRequest struct {
		Title        string              `json:"title"`
		Description  string              `json:"description"`
		DueDate      string              `json:"dueDate"`
		Priority     models.TaskPriority `json:"priority"`
		Status       models.TaskStatus   `json:"status"`
		AssignedToID string              `json:"assignedToId"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Priority:     req.Priority,
		Status:       req.Status,
		AssignedToID: req.AssignedToID,
	}, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Task created successfully",
		"task":    dto.ToTaskDTO(*task, h.taskService.Now()),
	})
}

// ListTasks returns all tasks, newest first
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.taskService.ListTasks()
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(tasks),
		"tasks":   dto.ToTaskDTOs(tasks, h.taskService.Now()),
	})
}

// ListMyTasks returns the tasks created by the current user
func (h *TaskHandler) ListMyTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	h.respondTasks(c)(h.taskService.ListMyTasks(userID))
}

// ListAssignedTasks returns the tasks assigned to the current user
func (h *TaskHandler) ListAssignedTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	h.respondTasks(c)(h.taskService.ListAssignedTasks(userID))
}

// ListOverdueTasks returns overdue tasks the current user created or is assigned to
func (h *TaskHandler) ListOverdueTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	h.respondTasks(c)(h.taskService.ListOverdueTasks(userID))
}

func (h *TaskHandler) respondTasks(c *gin.Context) func([]models.Task, error) {
	return func(tasks []models.Task, err error) {
		if err != nil {
			respondTaskError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"tasks":   dto.ToTaskDTOs(tasks, h.taskService.Now()),
		})
	}
}

// UpdateTask applies a partial update. Task ID is validated by RequireTaskParam.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID := middleware.GetTaskID(c)

	type UpdateTaskRequest struct {
		Title        *string              `json:"title"`
		Description  *string              `json:"description"`
		DueDate      *string              `json:"dueDate"`
		Priority     *models.TaskPriority `json:"priority"`
		Status       *models.TaskStatus   `json:"status"`
		AssignedToID *string              `json:"assignedToId"`
		Version      *int                 `json:"version"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(taskID, services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Priority:     req.Priority,
		Status:       req.Status,
		AssignedToID: req.AssignedToID,
		Version:      req.Version,
	}, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task updated successfully",
		"task":    dto.ToTaskDTO(*task, h.taskService.Now()),
	})
}

// UpdateTaskStatus sets the status of a task
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID := middleware.GetTaskID(c)

	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	task, err := h.taskService.UpdateTaskStatus(taskID, req.Status, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"task":    dto.ToTaskDTO(*task, h.taskService.Now()),
	})
}

// DeleteTask deletes a task (creator only)
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID := middleware.GetTaskID(c)

	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
	})
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		apierrors.Unauthorized(c, "Not authenticated")
	case errors.Is(err, services.ErrAllFieldsRequired):
		apierrors.BadRequest(c, "All fields are required")
	case services.IsValidationError(err):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, "Only the task creator can perform this action")
	case errors.Is(err, services.ErrNotTaskAssignee):
		apierrors.Forbidden(c, "Only assigned user can update status")
	case errors.Is(err, services.ErrVersionConflict):
		apierrors.Conflict(c, "Task was modified by someone else, reload and try again")
	default:
		slog.Error("task request failed", "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
