// internal/realtime/hub.go
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

func NewClient(userID uuid.UUID) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
}

// Hub tracks the open websocket clients of each user. It owns no goroutine;
// callers register and unregister from their connection handlers.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[string]*Client
	log     *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[string]*Client),
		log:     log,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[string]*Client)
		h.clients[c.UserID] = set
	}
	set[c.ID] = c
	h.log.WithFields(logrus.Fields{"client_id": c.ID, "user_id": c.UserID}).Debug("websocket client registered")
}

// Unregister removes the client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c.ID]; !ok {
		return
	}
	delete(set, c.ID)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	h.log.WithField("client_id", c.ID).Debug("websocket client unregistered")
}

// SendToUser delivers data to every open connection of userID. Slow clients
// whose buffer is full miss the event rather than block the sender.
func (h *Hub) SendToUser(userID uuid.UUID, data any) int {
	payload, err := json.Marshal(data)
	if err != nil {
		h.log.WithError(err).Error("marshal realtime payload")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, c := range h.clients[userID] {
		select {
		case c.Send <- payload:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
