package live

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Conn is the part of a websocket connection the hub's writer needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client represents a connected live client.
type Client struct {
	ID     string
	conn   Conn
	send   chan []byte
	userID string // owned by the hub goroutine
}

// NewClient wraps a connection. Frames queued by the hub are written by
// WritePump.
func NewClient(id string, conn Conn) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, clientBufferSize),
	}
}

// WritePump is the only writer of the connection. It returns, closing the
// connection, once the hub closes the send buffer or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("live: write failed", "client", c.ID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
