package constants

const (
	// ContextKeyUserID is the gin context key holding the authenticated user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyClaims is the gin context key holding the verified token claims.
	ContextKeyClaims = "token_claims"
	// ContextKeyTaskID is the gin context key holding a validated task ID path parameter.
	ContextKeyTaskID = "task_id"

	// TokenCookieName is the cookie carrying the signed identity token.
	TokenCookieName = "token"
)

// Live-update event names.
const (
	EventJoin              = "join"
	EventJoined            = "joined"
	EventError             = "error"
	EventTaskCreated       = "task-created"
	EventTaskUpdated       = "task-updated"
	EventTaskDeleted       = "task-deleted"
	EventTaskStatusUpdated = "task-status-updated"
	EventTaskAssigned      = "task-assigned"
)
