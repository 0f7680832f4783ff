package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrAllFieldsRequired = errors.New("all fields are required")
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotTaskCreator    = errors.New("only the task creator can perform this action")
	ErrNotTaskAssignee   = errors.New("only the assigned user can update status")
	ErrTitleEmpty        = errors.New("title cannot be empty")
	ErrDescriptionEmpty  = errors.New("description cannot be empty")
	ErrAssigneeEmpty     = errors.New("assignedToId cannot be empty")
	ErrInvalidDueDate    = errors.New("dueDate must be a date in YYYY-MM-DD format")
	ErrInvalidPriority   = errors.New("priority must be one of Low, Medium, High, Urgent")
	ErrInvalidStatus     = errors.New("status must be one of Todo, InProgress, Review, Completed")
	ErrAssigneeNotFound  = errors.New("assigned user does not exist")
	ErrVersionConflict   = errors.New("task was modified by someone else")
	ErrInvalidVersion    = errors.New("version must be a positive number")
)

var validationErrors = []error{
	ErrAllFieldsRequired,
	ErrTitleEmpty,
	ErrDescriptionEmpty,
	ErrAssigneeEmpty,
	ErrInvalidDueDate,
	ErrInvalidPriority,
	ErrInvalidStatus,
	ErrAssigneeNotFound,
	ErrInvalidVersion,
}

// IsValidationError reports whether err was caused by invalid client input.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Notifier delivers live task events. It must not block.
type Notifier interface {
	BroadcastAll(event string, payload any)
	BroadcastTo(userID, event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) BroadcastAll(string, any) {}
func (nopNotifier) BroadcastTo(string, string, any) {}

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	notifier Notifier
	policies Policies
	now      func() time.Time
}

// NewTaskService creates a new TaskService. A nil notifier disables live events.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, notifier Notifier, policies Policies) *TaskService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		notifier: notifier,
		policies: policies,
		now:      time.Now,
	}
}

// CreateTaskInput represents input for creating a task. DueDate is a
// YYYY-MM-DD date or an RFC 3339 timestamp.
type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      string
	Priority     models.TaskPriority
	Status       models.TaskStatus
	AssignedToID string
}

// UpdateTaskInput represents a partial task update. Nil fields are left
// unchanged. When Version is set it must match the stored version.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	DueDate      *string
	Priority     *models.TaskPriority
	Status       *models.TaskStatus
	AssignedToID *string
	Version      *int
}

// CreateTask validates input and creates a task owned by callerID
func (s *TaskService) CreateTask(input CreateTaskInput, callerID string) (*models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	assignedToID := strings.TrimSpace(input.AssignedToID)
	if title == "" || description == "" || strings.TrimSpace(input.DueDate) == "" ||
		input.Priority == "" || input.Status == "" || assignedToID == "" {
		return nil, ErrAllFieldsRequired
	}

	dueDate, err := utils.ParseDueDate(input.DueDate)
	if err != nil {
		return nil, ErrInvalidDueDate
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.ensureUserExists(assignedToID); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:        title,
		Description:  description,
		DueDate:      dueDate,
		Priority:     input.Priority,
		Status:       input.Status,
		CreatorID:    callerID,
		AssignedToID: assignedToID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created, err := s.getTask(task.ID, "Creator", "AssignedTo")
	if err != nil {
		return nil, err
	}

	s.notifier.BroadcastAll(constants.EventTaskCreated, dto.ToTaskDTO(*created, s.now()))
	return created, nil
}

// ListTasks returns every task, newest first
func (s *TaskService) ListTasks() ([]models.Task, error) {
	return s.list(repository.TaskFilter{})
}

// ListMyTasks returns the tasks created by callerID, newest first
func (s *TaskService) ListMyTasks(callerID string) ([]models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	return s.list(repository.TaskFilter{CreatorID: &callerID})
}

// ListAssignedTasks returns the tasks assigned to callerID, newest first
func (s *TaskService) ListAssignedTasks(callerID string) ([]models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	return s.list(repository.TaskFilter{AssignedToID: &callerID})
}

// ListOverdueTasks returns the overdue tasks callerID created or is assigned
// to, earliest due date first
func (s *TaskService) ListOverdueTasks(callerID string) ([]models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	tasks, err := s.list(repository.TaskFilter{InvolvedUserID: &callerID, SortByDueDate: true})
	if err != nil {
		return nil, err
	}

	now := s.now()
	overdue := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Overdue(now) {
			overdue = append(overdue, task)
		}
	}
	return overdue, nil
}

// UpdateTask applies a partial update to a task
func (s *TaskService) UpdateTask(taskID string, input UpdateTaskInput, callerID string) (*models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	task, err := s.getTask(taskID)
	if err != nil {
		return nil, err
	}

	if !s.policies.CanEdit(task, callerID) {
		return nil, ErrNotTaskCreator
	}

	if input.Version != nil {
		if *input.Version < 1 {
			return nil, ErrInvalidVersion
		}
		if *input.Version != task.Version {
			return nil, ErrVersionConflict
		}
	}

	previousAssignee := task.AssignedToID
	if err := s.applyUpdate(task, input); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, s.mapWriteError(err, "failed to update task")
	}

	updated, err := s.getTask(task.ID, "Creator", "AssignedTo")
	if err != nil {
		return nil, err
	}

	payload := dto.ToTaskDTO(*updated, s.now())
	s.notifier.BroadcastAll(constants.EventTaskUpdated, payload)
	if updated.AssignedToID != previousAssignee {
		s.notifier.BroadcastTo(updated.AssignedToID, constants.EventTaskAssigned, payload)
	}

	return updated, nil
}

func (s *TaskService) applyUpdate(task *models.Task, input UpdateTaskInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return ErrDescriptionEmpty
		}
		task.Description = description
	}
	if input.DueDate != nil {
		dueDate, err := utils.ParseDueDate(*input.DueDate)
		if err != nil {
			return ErrInvalidDueDate
		}
		task.DueDate = dueDate
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.AssignedToID != nil {
		assignedToID := strings.TrimSpace(*input.AssignedToID)
		if assignedToID == "" {
			return ErrAssigneeEmpty
		}
		if assignedToID != task.AssignedToID {
			if err := s.ensureUserExists(assignedToID); err != nil {
				return err
			}
		}
		task.AssignedToID = assignedToID
	}
	return nil
}

// DeleteTask deletes a task if the caller is its creator
func (s *TaskService) DeleteTask(taskID, callerID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}

	task, err := s.getTask(taskID)
	if err != nil {
		return err
	}

	if task.CreatorID != callerID {
		return ErrNotTaskCreator
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return s.mapWriteError(err, "failed to delete task")
	}

	s.notifier.BroadcastAll(constants.EventTaskDeleted, taskID)
	return nil
}

// UpdateTaskStatus sets the status of a task. Any status may follow any
// other, including reopening a completed task.
func (s *TaskService) UpdateTaskStatus(taskID string, status models.TaskStatus, callerID string) (*models.Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.getTask(taskID)
	if err != nil {
		return nil, err
	}

	if !s.policies.CanChangeStatus(task, callerID) {
		return nil, ErrNotTaskAssignee
	}

	task.Status = status
	if err := s.taskRepo.Update(task); err != nil {
		return nil, s.mapWriteError(err, "failed to update task status")
	}

	updated, err := s.getTask(task.ID, "Creator", "AssignedTo")
	if err != nil {
		return nil, err
	}

	s.notifier.BroadcastAll(constants.EventTaskStatusUpdated, dto.TaskStatusUpdatedDTO{
		TaskID: updated.ID,
		Status: updated.Status,
	})
	return updated, nil
}

// UsersSummary returns every user with their created, assigned and overdue
// assigned task counts
func (s *TaskService) UsersSummary() ([]dto.UserSummaryDTO, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	tasks, err := s.taskRepo.List(repository.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	created := make(map[string]int)
	assigned := make(map[string]int)
	overdue := make(map[string]int)
	for _, task := range tasks {
		created[task.CreatorID]++
		assigned[task.AssignedToID]++
		if task.Overdue(now) {
			overdue[task.AssignedToID]++
		}
	}

	summary := make([]dto.UserSummaryDTO, len(users))
	for i, user := range users {
		summary[i] = dto.UserSummaryDTO{
			ID:            user.ID,
			Name:          user.Name,
			Email:         user.Email,
			TasksCreated:  created[user.ID],
			TasksAssigned: assigned[user.ID],
			OverdueTasks:  overdue[user.ID],
		}
	}
	return summary, nil
}

// Now returns the service clock's current time
func (s *TaskService) Now() time.Time {
	return s.now()
}

func (s *TaskService) list(filter repository.TaskFilter) ([]models.Task, error) {
	tasks, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) getTask(taskID string, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ensureUserExists(userID string) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	return nil
}

// mapWriteError translates store errors from a write that raced another one
func (s *TaskService) mapWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrTaskNotFound
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
