package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "Todo"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusReview     TaskStatus = "Review"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
	TaskPriorityUrgent TaskPriority = "Urgent"
)

var priorityRank = map[TaskPriority]int{
	TaskPriorityLow:    1,
	TaskPriorityMedium: 2,
	TaskPriorityHigh:   3,
	TaskPriorityUrgent: 4,
}

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank orders priorities from Low (1) to Urgent (4). Unknown values rank 0.
func (p TaskPriority) Rank() int {
	return priorityRank[p]
}

type Task struct {
	ID           string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Description  string         `gorm:"type:text;not null" json:"description"`
	DueDate      time.Time      `gorm:"not null" json:"due_date"`
	Priority     TaskPriority   `gorm:"type:varchar(20);not null" json:"priority"`
	Status       TaskStatus     `gorm:"type:varchar(20);not null;default:'Todo'" json:"status"`
	CreatorID    string         `gorm:"type:varchar(36);not null" json:"creator_id"`
	AssignedToID string         `gorm:"type:varchar(36);not null" json:"assigned_to_id"`
	Version      int            `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator    User `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	AssignedTo User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
}

// BeforeCreate assigns a UUID and the initial version.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return nil
}

// IsOverdue is the single definition of an overdue task: the due date has
// passed and the task is not completed.
func IsOverdue(dueDate time.Time, status TaskStatus, now time.Time) bool {
	return dueDate.Before(now) && status != TaskStatusCompleted
}

// Overdue applies IsOverdue to the task.
func (t *Task) Overdue(now time.Time) bool {
	return IsOverdue(t.DueDate, t.Status, now)
}
