package realtime

import (
	"encoding/json"
	"sync"
)

// Conn is a single push channel to one live session. The network connection
// itself lives in the websocket handler.
type Conn interface {
	Send(message []byte) bool
	Close()
}

// Hub tracks live sessions per user and fans task events out to them.
// Users who are not connected simply miss the push; they reconcile on the
// next fetch.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Conn]struct{}
}

var hubInstance *Hub
var once sync.Once

// GetHub returns the process-wide hub.
func GetHub() *Hub {
	once.Do(func() {
		hubInstance = &Hub{
			sessions: make(map[string]map[Conn]struct{}),
		}
	})
	return hubInstance
}

// Register adds a session under a user ID.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[userID]; !ok {
		h.sessions[userID] = make(map[Conn]struct{})
	}
	h.sessions[userID][conn] = struct{}{}
}

// Unregister removes a session, dropping the user entry once it is empty.
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.sessions[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.sessions, userID)
		}
	}
}

// Broadcast sends raw bytes to every session of one user. Failed sends are
// left for the owning handler to clean up.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[userID] {
		_ = c.Send(message)
	}
}

// BroadcastEvent marshals a task event once and delivers it to each named
// user. Duplicate and empty user IDs are skipped so an actor editing their
// own task gets a single frame.
func (h *Hub) BroadcastEvent(evt Event, userIDs ...string) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h.Broadcast(id, payload)
	}
}
