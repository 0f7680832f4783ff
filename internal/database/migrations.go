package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the indexes used by the task listings.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns []string
	}{
		{"idx_tasks_creator_id", []string{"creator_id"}},
		{"idx_tasks_assigned_to_id", []string{"assigned_to_id"}},
		{"idx_tasks_due_date", []string{"due_date"}},
		{"idx_tasks_created_at", []string{"created_at"}},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "columns", idx.columns)
	}

	return nil
}

// MigrateDatabase runs schema migrations followed by index creation.
func MigrateDatabase(db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		return err
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
