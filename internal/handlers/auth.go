package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService   *services.AuthService
	taskService   *services.TaskService
	issuer        *auth.TokenIssuer
	revocations   auth.RevocationStore
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, taskService *services.TaskService, issuer *auth.TokenIssuer, revocations auth.RevocationStore, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		taskService:   taskService,
		issuer:        issuer,
		revocations:   revocations,
		secureCookies: secureCookies,
	}
}

// Register creates a user and signs them in.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.authService.Register(services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    dto.ToUserDTO(*user),
	})
}

// Login authenticates a user and sets the token cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    dto.ToUserDTO(*user),
	})
}

// Logout revokes the presented token and clears the cookie. It is mounted
// behind OptionalAuth, so anonymous callers also succeed.
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.GetClaims(c); ok && h.revocations != nil {
		ttl := auth.RemainingTTL(claims, time.Now())
		if err := h.revocations.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			slog.Warn("failed to revoke token", "error", err)
		}
	}

	h.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetProfile returns the authenticated user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    dto.ToUserDTO(*user),
	})
}

// UpdateProfile changes the authenticated user's name, email or password.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateProfileRequest struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		CurrentPassword string `json:"currentPassword"`
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	user, err := h.authService.UpdateProfile(userID, services.UpdateProfileInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"user":    dto.ToUserDTO(*user),
	})
}

// ListUsers returns the id, name and email of every user.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers()
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   dto.ToUserDTOs(users),
	})
}

// Summary returns per-user task counts.
func (h *AuthHandler) Summary(c *gin.Context) {
	summary, err := h.taskService.UsersSummary()
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   summary,
	})
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		slog.Error("failed to issue token", "user", user.ID, "error", err)
		apierrors.InternalError(c, "Failed to create session")
		return false
	}
	h.setTokenCookie(c, token)
	return true
}

func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.TokenCookieName, token, int(h.issuer.TTL().Seconds()), "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.TokenCookieName, "", -1, "/", "", h.secureCookies, true)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAllFieldsRequired):
		apierrors.BadRequest(c, "All fields are required")
	case errors.Is(err, services.ErrPasswordTooLong):
		apierrors.BadRequest(c, "Password must be at most 72 bytes")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.AlreadyExists(c, "User already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, "Invalid credentials")
	case errors.Is(err, services.ErrCurrentPasswordRequired):
		apierrors.BadRequest(c, "Current password is required")
	case errors.Is(err, services.ErrCurrentPasswordIncorrect):
		apierrors.Unauthorized(c, "Current password is incorrect")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	default:
		slog.Error("auth request failed", "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "Internal server error")
	}
}
