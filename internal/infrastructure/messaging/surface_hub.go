package messaging

import (
	"sync"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

// Hub tracks the live surface connections of every session
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Connection]bool
	logger   *logging.ChanneledLogger
}

func NewHub(logger *logging.ChanneledLogger) *Hub {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Hub{sessions: make(map[string]map[Connection]bool), logger: logger}
}

// Register adds conn and removes it again once it is done
func (h *Hub) Register(conn Connection) {
	h.mu.Lock()
	clients, ok := h.sessions[conn.SessionID()]
	if !ok {
		clients = make(map[Connection]bool)
		h.sessions[conn.SessionID()] = clients
	}
	clients[conn] = true
	count := len(clients)
	h.mu.Unlock()

	h.logger.Sync().Info("Surface client registered", "sessionId", conn.SessionID(), "connections", count)
	go func() {
		<-conn.Done()
		h.Unregister(conn)
	}()
}

func (h *Hub) Unregister(conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[conn.SessionID()]
	if !ok || !clients[conn] {
		return
	}
	delete(clients, conn)
	if len(clients) == 0 {
		delete(h.sessions, conn.SessionID())
	}
	h.logger.Sync().Info("Surface client unregistered", "sessionId", conn.SessionID())
}

// CloseSession disconnects every surface of sessionID
func (h *Hub) CloseSession(sessionID string) int {
	h.mu.RLock()
	conns := make([]Connection, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
		h.Unregister(c)
	}
	return len(conns)
}

func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Total counts connections across all sessions
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.sessions {
		n += len(clients)
	}
	return n
}

// CloseAll disconnects every surface, used on shutdown
func (h *Hub) CloseAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.CloseSession(id)
	}
}
