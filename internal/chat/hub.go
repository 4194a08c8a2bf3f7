package chat

import (
	"log/slog"
	"sync"

	"github.com/b4nter/banter-backend/internal/models"
	"github.com/google/uuid"
)

const sendBufferSize = 64

// client is one connected chat participant.
type client struct {
	userID   uuid.UUID
	username string
	send     chan Event
}

// Event is the wire envelope for everything the hub pushes.
type Event struct {
	Type    string      `json:"type"` // message, presence, history, error
	Payload interface{} `json:"payload"`
}

// MessagePayload is a single chat message over the wire.
type MessagePayload struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"created_at"`
}

// PresencePayload announces who is online after a join or leave.
type PresencePayload struct {
	Online int      `json:"online"`
	Users  []string `json:"users"`
}

// Hub fans messages out to every connected client of the single global
// room. All map access goes through the mutex; the hub never blocks on a
// slow client, it drops them instead.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.broadcastPresence()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.broadcastPresence()
}

// Broadcast queues the event on every client. A client whose buffer is
// full is disconnected rather than stalling the room.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	var stale []*client
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		slog.Warn("dropping slow chat client", "user_id", c.userID)
		h.unregister(c)
	}
}

func (h *Hub) broadcastPresence() {
	h.mu.RLock()
	users := make([]string, 0, len(h.clients))
	for c := range h.clients {
		users = append(users, c.username)
	}
	h.mu.RUnlock()

	h.Broadcast(Event{Type: "presence", Payload: PresencePayload{Online: len(users), Users: users}})
}

// Online reports the connected user count.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func messagePayload(m *models.ChatMessage) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
