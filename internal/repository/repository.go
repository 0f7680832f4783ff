package repository

import (
	"errors"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

// ErrVersionConflict is returned when a task was modified after it was read.
var ErrVersionConflict = errors.New("task repository: version conflict")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Task, error)

	// List retrieves tasks matching the filter, creator and assignee preloaded
	List(filter TaskFilter) ([]models.Task, error)

	// Update writes the task if its stored version still equals task.Version,
	// then increments task.Version
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id string) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	CreatorID    *string
	AssignedToID *string
	// InvolvedUserID matches tasks the user created or is assigned to
	InvolvedUserID *string
	SortByDueDate  bool
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// List returns all users ordered by name
	List() ([]models.User, error)

	// Update saves the user
	Update(user *models.User) error
}
