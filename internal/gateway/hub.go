package gateway

import (
	"sync"

	"github.com/yolosopher/rps-live/internal/model"
	"github.com/yolosopher/rps-live/internal/services/match"
)

// Hub tracks which live connections belong to which user and fans events
// out to all of them. Delivery is fire-and-forget: a connection whose
// outbound buffer is full has the frame dropped, and the client recovers by
// asking for full state.
type Hub struct {
	mu    sync.RWMutex
	users map[model.UserID]map[string]*conn
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		users: make(map[model.UserID]map[string]*conn),
	}
}

// PushToUser sends an event to every live session of the user
func (h *Hub) PushToUser(user model.UserID, event string, data any) {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.users[user]))
	for _, c := range h.users[user] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.push(pushFrame{Event: event, Data: data})
	}
}

func (h *Hub) register(user model.UserID, sessionID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[user] == nil {
		h.users[user] = make(map[string]*conn)
	}
	h.users[user][sessionID] = c
}

func (h *Hub) unregister(user model.UserID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.users[user], sessionID)
	if len(h.users[user]) == 0 {
		delete(h.users, user)
	}
}

var _ match.Pusher = (*Hub)(nil)
