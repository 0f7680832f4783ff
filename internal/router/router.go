package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/config"
	"github.com/yukikurage/task-tracker-api/internal/handlers"
	"github.com/yukikurage/task-tracker-api/internal/live"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
)

// Deps holds what the routes are wired to.
type Deps struct {
	Auth        *handlers.AuthHandler
	Tasks       *handlers.TaskHandler
	Live        *live.Handler
	Hub         *live.Hub
	Verifier    middleware.TokenVerifier
	Revocations auth.RevocationStore
}

// Register wires routes and middleware.
func Register(r *gin.Engine, cfg *config.Config, deps Deps) {
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"message":           "Task Tracker API is running",
			"connected_clients": deps.Hub.ClientCount(),
		})
	})

	r.GET("/ws", deps.Live.ServeWS)

	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Revocations)
	optionalAuth := middleware.OptionalAuth(deps.Verifier, deps.Revocations)

	api := r.Group("/api/v1")
	{
		// Auth routes
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", deps.Auth.Register)
			authGroup.POST("/login", deps.Auth.Login)
			authGroup.POST("/logout", optionalAuth, deps.Auth.Logout)
			authGroup.GET("/profile", requireAuth, deps.Auth.GetProfile)
			authGroup.PUT("/profile", requireAuth, deps.Auth.UpdateProfile)
			authGroup.GET("/all-users", requireAuth, deps.Auth.ListUsers)
			authGroup.GET("/summary", requireAuth, deps.Auth.Summary)
		}

		// Task routes (protected)
		tasks := api.Group("/task")
		tasks.Use(requireAuth)
		{
			tasks.POST("/add-task", deps.Tasks.CreateTask)
			tasks.GET("/get-tasks", deps.Tasks.ListTasks)
			tasks.GET("/my-tasks", deps.Tasks.ListMyTasks)
			tasks.GET("/assigned-to-me", deps.Tasks.ListAssignedTasks)
			tasks.GET("/overdue", deps.Tasks.ListOverdueTasks)
			tasks.PUT("/:id", middleware.RequireTaskParam("id"), deps.Tasks.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskParam("id"), deps.Tasks.DeleteTask)
			tasks.PATCH("/:taskId/status", middleware.RequireTaskParam("taskId"), deps.Tasks.UpdateTaskStatus)
		}
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	return cors.Config{
		AllowOrigins:     []string{strings.TrimRight(cfg.ClientURL, "/")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
