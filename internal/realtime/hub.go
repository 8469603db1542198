// internal/realtime/hub.go
package realtime

import (
	"log/slog"
	"sync"

	"github.com/gurkanbulca/workhub/internal/models"
)

// Event is the wire envelope pushed to live connections.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn is one live connection. A principal may hold several (one per device).
type Conn interface {
	Send(event Event) error
	Close() error
}

// Hub is the delivery channel registry: principal ID to the set of live
// connections. Sending to a principal with no connections is a no-op; offline
// recipients pick up their persisted backlog on the next connect.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[Conn]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]map[Conn]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(principalID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[principalID]
	if !ok {
		set = make(map[Conn]struct{})
		h.conns[principalID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("connection registered", "principal", principalID, "connections", len(set))
}

// Unregister drops one connection. When it was the principal's last one the
// principal is simply offline; no error.
func (h *Hub) Unregister(principalID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[principalID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, principalID)
	}
}

// Online reports whether the principal has at least one live connection.
func (h *Hub) Online(principalID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[principalID]) > 0
}

// Connections returns the number of live connections for the principal.
func (h *Hub) Connections(principalID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[principalID])
}

// Send pushes an event to every live connection of the principal. The
// connection set is snapshotted under the read lock and the writes happen
// outside it, so slow consumers on one principal do not hold up others.
func (h *Hub) Send(principalID string, event Event) {
	h.mu.RLock()
	set := h.conns[principalID]
	snapshot := make([]Conn, 0, len(set))
	for c := range set {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		if err := c.Send(event); err != nil {
			h.logger.Warn("realtime send failed", "principal", principalID, "error", err)
			h.Unregister(principalID, c)
			_ = c.Close()
		}
	}
}

// SendNotification delivers a persisted notification to the principal's live
// connections. Best effort: failures are logged inside Send, never returned.
func (h *Hub) SendNotification(recipientID string, n *models.Notification) {
	h.Send(recipientID, Event{Type: "notification", Payload: n})
}
