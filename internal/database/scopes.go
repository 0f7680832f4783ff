package database

import (
	"gorm.io/gorm"
)

// NewestFirst orders tasks by creation time, most recent first.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("tasks.created_at DESC")
}

// EarliestDueFirst orders tasks by due date, oldest deadline first.
func EarliestDueFirst(db *gorm.DB) *gorm.DB {
	return db.Order("tasks.due_date ASC").Order("tasks.created_at DESC")
}

// WithPeople preloads the creator and assignee of each task.
func WithPeople(db *gorm.DB) *gorm.DB {
	return db.Preload("Creator").Preload("AssignedTo")
}
