package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
)

var errJoinDenied = errors.New("join requires a valid token")

// inbound is a frame sent by a client.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	Token string `json:"token"`
}

// JoinedPayload acknowledges a successful join.
type JoinedPayload struct {
	UserID string `json:"userId"`
}

// ErrorPayload describes a rejected client frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Handler upgrades HTTP requests to live connections.
type Handler struct {
	hub         *Hub
	verifier    middleware.TokenVerifier
	revocations auth.RevocationStore
	upgrader    websocket.Upgrader
}

// NewHandler creates a new live handler. Browser connections are accepted
// only from allowedOrigin; an empty allowedOrigin accepts any origin.
func NewHandler(hub *Hub, verifier middleware.TokenVerifier, revocations auth.RevocationStore, allowedOrigin string) *Handler {
	allowedOrigin = strings.TrimRight(allowedOrigin, "/")
	return &Handler{
		hub:         hub,
		verifier:    verifier,
		revocations: revocations,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeWS handles GET /ws. A connection presenting a valid token cookie is
// placed in its user's room straight away; otherwise it receives broadcasts
// only until it sends a join frame.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("live: upgrade failed", "error", err)
		return
	}

	client := NewClient(uuid.New().String(), conn)
	h.hub.Register(client)
	go client.WritePump()

	defer func() {
		h.hub.Unregister(client)
		slog.Debug("live: client disconnected", "client", client.ID)
	}()

	cookieToken := middleware.TokenFromRequest(c)
	if cookieToken != "" {
		if userID, err := h.authenticate(c.Request.Context(), cookieToken); err == nil {
			h.join(client, userID)
		}
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("live: read error", "client", client.ID, "error", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(client, "Invalid message format")
			continue
		}

		switch msg.Event {
		case constants.EventJoin:
			// A legacy payload carrying a bare user ID fails verification and
			// falls back to the identity of the upgrade request.
			userID, err := h.authenticate(c.Request.Context(), joinToken(msg.Data))
			if err != nil {
				userID, err = h.authenticate(c.Request.Context(), cookieToken)
			}
			if err != nil {
				h.sendError(client, errJoinDenied.Error())
				continue
			}
			h.join(client, userID)
		default:
			h.sendError(client, "Unknown event: "+msg.Event)
		}
	}
}

func (h *Handler) join(client *Client, userID string) {
	h.hub.Join(client.ID, userID)
	h.hub.SendToClient(client.ID, constants.EventJoined, JoinedPayload{UserID: userID})
}

func (h *Handler) sendError(client *Client, message string) {
	h.hub.SendToClient(client.ID, constants.EventError, ErrorPayload{Message: message})
}

// authenticate resolves a token to the user it was issued to. The room a
// client joins is always derived from the token, never from client input.
func (h *Handler) authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errJoinDenied
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		return "", err
	}
	if h.revocations != nil {
		if revoked, _ := h.revocations.IsRevoked(ctx, claims.ID); revoked {
			return "", errJoinDenied
		}
	}
	return claims.UserID(), nil
}

// joinToken accepts {"token": "..."} or a bare string.
func joinToken(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err == nil {
		return payload.Token
	}
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		return token
	}
	return ""
}
