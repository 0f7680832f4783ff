package repository

import (
	"github.com/yukikurage/task-tracker-api/internal/database"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id string, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("tasks.id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks matching the filter
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, error) {
	var tasks []models.Task

	query := r.db.Model(&models.Task{})

	if filter.CreatorID != nil {
		query = query.Where("tasks.creator_id = ?", *filter.CreatorID)
	}
	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.InvolvedUserID != nil {
		query = query.Where("tasks.creator_id = ? OR tasks.assigned_to_id = ?", *filter.InvolvedUserID, *filter.InvolvedUserID)
	}

	if filter.SortByDueDate {
		query = query.Scopes(database.EarliestDueFirst)
	} else {
		query = query.Scopes(database.NewestFirst)
	}

	if err := query.Scopes(database.WithPeople).Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update performs a compare-and-swap on the version column
func (r *GormTaskRepository) Update(task *models.Task) error {
	expected := task.Version
	task.Version = expected + 1

	result := r.db.Model(task).
		Where("version = ?", expected).
		Select("Title", "Description", "DueDate", "Priority", "Status", "AssignedToID", "Version", "UpdatedAt").
		Updates(task)
	if result.Error != nil {
		task.Version = expected
		return result.Error
	}

	if result.RowsAffected == 0 {
		task.Version = expected

		// Distinguish a concurrent delete from a concurrent edit
		var count int64
		if err := r.db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}

	return nil
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
