package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	broadcastQueueSize = 256
	clientBufferSize   = 64
)

// Message is the JSON frame exchanged over the live channel.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// outbound is an encoded frame and its audience: one client, one room, or
// everybody when both are empty.
type outbound struct {
	clientID string
	room     string
	data     []byte
}

// membership is a register, unregister or join request. The hub closes
// handled once the change is visible to ClientCount and RoomClientCount.
type membership struct {
	client   *Client
	clientID string
	userID   string
	handled  chan struct{}
}

// Hub tracks live connections and fans events out to them. All membership
// changes and deliveries happen on the Run goroutine.
type Hub struct {
	clients    map[string]*Client            // clientID -> Client
	rooms      map[string]map[string]*Client // userID -> clientID -> Client
	register   chan membership
	unregister chan membership
	join       chan membership
	broadcast  chan *outbound
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan membership),
		unregister: make(chan membership),
		join:       make(chan membership),
		broadcast:  make(chan *outbound, broadcastQueueSize),
		done:       make(chan struct{}),
	}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("live hub shutting down", "clients", h.ClientCount())
			h.closeAllClients()
			close(h.done)
			return
		case req := <-h.register:
			h.handleRegister(req.client)
			close(req.handled)
		case req := <-h.unregister:
			h.handleUnregister(req.client)
			close(req.handled)
		case req := <-h.join:
			h.handleJoin(req)
			close(req.handled)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub and returns once it is counted.
func (h *Hub) Register(client *Client) {
	h.submit(h.register, membership{client: client})
}

// Unregister removes a client, leaving its room and closing its send
// buffer, and returns once that is done.
func (h *Hub) Unregister(client *Client) {
	h.submit(h.unregister, membership{client: client})
}

// Join puts a client into the room of userID, leaving any previous room,
// and returns once the move is done.
func (h *Hub) Join(clientID, userID string) {
	h.submit(h.join, membership{clientID: clientID, userID: userID})
}

// submit hands req to the Run loop and waits until it has been applied.
// After shutdown it returns without waiting.
func (h *Hub) submit(ch chan membership, req membership) {
	req.handled = make(chan struct{})
	select {
	case ch <- req:
	case <-h.done:
		return
	}
	select {
	case <-req.handled:
	case <-h.done:
	}
}

// BroadcastAll sends an event to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.enqueue(&outbound{}, event, payload)
}

// BroadcastTo sends an event to the clients that joined userID's room.
func (h *Hub) BroadcastTo(userID, event string, payload any) {
	if userID == "" {
		return
	}
	h.enqueue(&outbound{room: userID}, event, payload)
}

// SendToClient sends an event to a single connection.
func (h *Hub) SendToClient(clientID, event string, payload any) {
	h.enqueue(&outbound{clientID: clientID}, event, payload)
}

func (h *Hub) enqueue(msg *outbound, event string, payload any) {
	data, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		slog.Error("live: failed to encode event", "event", event, "error", err)
		return
	}
	msg.data = data
	h.deliver(msg)
}

// deliver queues an encoded frame without ever blocking the caller.
func (h *Hub) deliver(msg *outbound) {
	select {
	case h.broadcast <- msg:
	default:
		slog.Warn("live: broadcast queue full, dropping event", "room", msg.room)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	slog.Debug("live: client registered", "client", client.ID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	h.leaveRoomLocked(client)
	close(client.send)
	slog.Debug("live: client unregistered", "client", client.ID)
}

func (h *Hub) leaveRoomLocked(client *Client) {
	if client.userID == "" {
		return
	}
	if members := h.rooms[client.userID]; members != nil {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, client.userID)
		}
	}
	client.userID = ""
}

func (h *Hub) handleJoin(req membership) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[req.clientID]
	if !ok {
		return
	}

	h.leaveRoomLocked(client)

	client.userID = req.userID
	if h.rooms[req.userID] == nil {
		h.rooms[req.userID] = make(map[string]*Client)
	}
	h.rooms[req.userID][client.ID] = client
	slog.Debug("live: client joined room", "client", client.ID, "user", req.userID)
}

func (h *Hub) handleBroadcast(msg *outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case msg.clientID != "":
		if client, ok := h.clients[msg.clientID]; ok {
			h.sendLocked(client, msg.data)
		}
	case msg.room != "":
		for _, client := range h.rooms[msg.room] {
			h.sendLocked(client, msg.data)
		}
	default:
		for _, client := range h.clients {
			h.sendLocked(client, msg.data)
		}
	}
}

// sendLocked hands data to the client's writer. A client that cannot keep up
// is disconnected rather than allowed to stall the hub.
func (h *Hub) sendLocked(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		slog.Warn("live: client too slow, disconnecting", "client", client.ID)
		h.removeLocked(client)
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of connections in a user's room.
func (h *Hub) RoomClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
