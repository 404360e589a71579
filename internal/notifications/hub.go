// Package notifications streams session events to websocket clients.
package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"silverlink/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per session
	maxConnsPerSession = 8
	// Max total connections
	maxTotalConns = 10000
)

// Hub is a websocket hub that maps sessionID -> set of Clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	notifier   *Notifier
	logger     *observability.WSLogger
	shutdown   chan struct{}
	done       chan struct{}
}

// NewHub creates a Hub. With an enabled notifier, events published on one
// instance reach clients connected to any instance.
func NewHub(notifier *Notifier) *Hub {
	return &Hub{
		conns:    make(map[string]map[*Client]struct{}),
		notifier: notifier,
		logger:   observability.NewWSLogger("session hub"),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "session hub" }

// Register a connection for a given session. Returns the Client or error if limits exceeded.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[sessionID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[sessionID] = m
	}

	if len(m) >= maxConnsPerSession {
		return nil, errors.New("session connection limit reached")
	}

	client := NewClient(h, conn, sessionID)
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()
	h.logger.LogConnect(context.Background(), sessionID)

	return client, nil
}

// UnregisterClient removes a client. It is safe to call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) bool {
	m, ok := h.conns[client.SessionID]
	if !ok {
		return false
	}
	if _, exists := m[client]; !exists {
		return false
	}
	delete(m, client)
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
	if len(m) == 0 {
		delete(h.conns, client.SessionID)
	}
	h.logger.LogDisconnect(context.Background(), client.SessionID, "unregistered")
	return true
}

// Broadcast delivers payload to this instance's connections for sessionID.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[sessionID] {
		c.TrySend(payload)
	}
}

// Publish routes payload through Redis when available and delivers locally
// otherwise, or when publishing fails.
func (h *Hub) Publish(ctx context.Context, sessionID string, payload []byte) {
	if h.notifier.Enabled() {
		err := h.notifier.PublishSession(ctx, sessionID, payload)
		if err == nil {
			return
		}
		h.logger.LogError(ctx, sessionID, err, "publish")
	}
	h.Broadcast(sessionID, payload)
}

// StartWiring subscribes to session channels so published events reach
// local clients. Without a notifier it does nothing.
func (h *Hub) StartWiring(ctx context.Context) error {
	return h.notifier.StartSessionSubscriber(ctx, h.Broadcast)
}

// Count returns the number of local connections for sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[sessionID])
}

// CloseSession disconnects every local client of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.conns[sessionID] {
		if h.removeLocked(client) {
			close(client.Send)
		}
	}
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	h.mu.Lock()
	for sessionID, sessionConns := range h.conns {
		for client := range sessionConns {
			observability.WebSocketConnectionsTotal.Dec()
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for session %s: %v", sessionID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for session %s: %v", sessionID, err)
			}
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	close(h.done)

	return nil
}
