package middleware

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
)

// TokenVerifier verifies identity tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid, unrevoked identity token and
// stores the user ID and claims in the context for the handlers.
func RequireAuth(verifier TokenVerifier, revocations auth.RevocationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if msg := authenticate(c, verifier, revocations); msg != "" {
			apierrors.Unauthorized(c, msg)
			return
		}
		c.Next()
	}
}

// OptionalAuth stores the identity of a valid token like RequireAuth but lets
// anonymous and invalid requests through.
func OptionalAuth(verifier TokenVerifier, revocations auth.RevocationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, verifier, revocations)
		c.Next()
	}
}

// authenticate returns the rejection message, or "" once the caller's
// identity is in the context.
func authenticate(c *gin.Context, verifier TokenVerifier, revocations auth.RevocationStore) string {
	token := TokenFromRequest(c)
	if token == "" {
		return "Authentication required"
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return "Invalid or expired token"
	}

	if revocations != nil {
		revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			slog.Warn("revocation check failed", "error", err)
		}
		if revoked {
			return "Token has been revoked"
		}
	}

	// Store user ID in context for easy access in handlers
	c.Set(constants.ContextKeyUserID, claims.UserID())
	c.Set(constants.ContextKeyClaims, claims)
	return ""
}

// TokenFromRequest reads the token cookie, falling back to a bearer header.
func TokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(constants.TokenCookieName); err == nil && token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(constants.ContextKeyUserID)
	if userID == "" {
		return "", false
	}
	return userID, true
}

// GetClaims retrieves the verified token claims from context
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(constants.ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}
