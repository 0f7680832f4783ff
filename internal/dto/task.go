package dto

import (
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UserRefDTO is the short form of a user attached to a task
type UserRefDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TaskDTO represents a task in API responses and live events
type TaskDTO struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	DueDate      string              `json:"dueDate"`
	Priority     models.TaskPriority `json:"priority"`
	Status       models.TaskStatus   `json:"status"`
	CreatorID    string              `json:"creatorId"`
	AssignedToID string              `json:"assignedToId"`
	Version      int                 `json:"version"`
	Overdue      bool                `json:"overdue"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Creator      *UserRefDTO         `json:"creator,omitempty"`
	AssignedTo   *UserRefDTO         `json:"assignedTo,omitempty"`
}

// UserSummaryDTO holds a user's task counts
type UserSummaryDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	TasksCreated  int    `json:"tasksCreated"`
	TasksAssigned int    `json:"tasksAssigned"`
	OverdueTasks  int    `json:"overdueTasks"`
}

// TaskStatusUpdatedDTO is the payload of the task-status-updated event
type TaskStatusUpdatedDTO struct {
	TaskID string            `json:"taskId"`
	Status models.TaskStatus `json:"status"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		dto.CreatedAt = &createdAt
	}
	return dto
}

// ToUserDTOs converts users to their short listing form
func ToUserDTOs(users []models.User) []UserDTO {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = UserDTO{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	return items
}

func toUserRef(user models.User) *UserRefDTO {
	if user.ID == "" {
		return nil
	}
	return &UserRefDTO{ID: user.ID, Name: user.Name}
}

// ToTaskDTO converts a Task model to TaskDTO, deriving overdue at now
func ToTaskDTO(task models.Task, now time.Time) TaskDTO {
	return TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      utils.FormatDate(task.DueDate),
		Priority:     task.Priority,
		Status:       task.Status,
		CreatorID:    task.CreatorID,
		AssignedToID: task.AssignedToID,
		Version:      task.Version,
		Overdue:      task.Overdue(now),
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
		// Included only if preloaded
		Creator:    toUserRef(task.Creator),
		AssignedTo: toUserRef(task.AssignedTo),
	}
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task, now time.Time) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, now)
	}
	return items
}
