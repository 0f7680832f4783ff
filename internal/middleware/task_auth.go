package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
)

// RequireTaskParam checks that the named path parameter is a task ID.
// Existence and ownership are decided by the task service.
func RequireTaskParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param(param)
		if taskID == "" {
			apierrors.BadRequest(c, "Task id is required")
			return
		}
		if _, err := uuid.Parse(taskID); err != nil {
			apierrors.BadRequest(c, "Invalid task id")
			return
		}

		c.Set(constants.ContextKeyTaskID, taskID)
		c.Next()
	}
}

// GetTaskID retrieves the task ID validated by RequireTaskParam
func GetTaskID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyTaskID)
}
