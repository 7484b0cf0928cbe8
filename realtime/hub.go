package realtime

import (
	"sync"
)

// Hub is the presence registry: the process-wide map from user identity to
// the live connection handle. Entries exist only while a connection does;
// nothing here is persisted.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register stores the client as the user's current handle, replacing and
// shutting down any previous connection for the same user (last writer
// wins). It returns the full set of online user IDs so the caller can
// seed the new connection with a presence snapshot.
func (h *Hub) Register(c *Client) []string {
	h.mu.Lock()
	prev := h.clients[c.UserID]
	h.clients[c.UserID] = c
	online := make([]string, 0, len(h.clients))
	for id := range h.clients {
		online = append(online, id)
	}
	h.mu.Unlock()

	if prev != nil && prev != c {
		prev.shutdown()
	}
	return online
}

// Unregister removes the user's entry only if it still points at this
// client. A stale disconnect racing a fresh connect must not evict the
// newer handle. Reports whether the entry was removed.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	current, ok := h.clients[c.UserID]
	if ok && current == c {
		delete(h.clients, c.UserID)
	}
	h.mu.Unlock()

	c.shutdown()
	return ok && current == c
}

// Lookup resolves a user to their live connection, if any.
func (h *Hub) Lookup(userID string) (*Client, bool) {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	return c, ok
}

// OnlineIDs snapshots the currently connected user IDs.
func (h *Hub) OnlineIDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	return ids
}

// IsOnline reports whether the user has a live connection.
func (h *Hub) IsOnline(userID string) bool {
	_, ok := h.Lookup(userID)
	return ok
}
