// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker-api/internal/database"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database closed at test cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every new connection to ":memory:" is a fresh, empty database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.MigrateDatabase(db))
	return db
}

// CreateUser inserts a user whose password is "password".
func CreateUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTask inserts a task with sensible defaults for the unspecified fields.
func CreateTask(t *testing.T, db *gorm.DB, task models.Task) *models.Task {
	t.Helper()

	if task.Title == "" {
		task.Title = "Test Task"
	}
	if task.Description == "" {
		task.Description = "Test Description"
	}
	if task.DueDate.IsZero() {
		task.DueDate = time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	require.NoError(t, db.Create(&task).Error)
	return &task
}
