package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sonarfleet/sonar-server-go/internal/game"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one websocket subscriber for a single match.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans state snapshots out to websocket subscribers, keyed by match id.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]bool
}

func newHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[*client]bool),
	}
}

// serveWS upgrades the connection and registers it for the match.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, matchID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("match_id", matchID),
			zap.Error(err),
		)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}
	h.register(matchID, c)

	go h.writePump(matchID, c)
	go h.readPump(matchID, c)
}

func (h *Hub) register(matchID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[matchID] == nil {
		h.clients[matchID] = make(map[*client]bool)
	}
	h.clients[matchID][c] = true
}

func (h *Hub) unregister(matchID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.clients[matchID]; ok {
		if subs[c] {
			delete(subs, c)
			close(c.send)
		}
		if len(subs) == 0 {
			delete(h.clients, matchID)
		}
	}
}

// broadcastState pushes a snapshot to every subscriber of the match. Slow
// subscribers are dropped rather than blocking the operation path.
func (h *Hub) broadcastState(state *game.MatchState) {
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Warn("failed to encode state for broadcast",
			zap.String("match_id", state.ID),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	subs := make([]*client, 0, len(h.clients[state.ID]))
	for c := range h.clients[state.ID] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		select {
		case c.send <- data:
		default:
			h.unregister(state.ID, c)
			_ = c.conn.Close()
		}
	}
}

func (h *Hub) writePump(matchID string, c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write failed",
				zap.String("match_id", matchID),
				zap.Error(err),
			)
			break
		}
	}
	_ = c.conn.Close()
}

// readPump drains the connection so close frames are processed; subscribers
// are read-only.
func (h *Hub) readPump(matchID string, c *client) {
	defer func() {
		h.unregister(matchID, c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// closeAll disconnects every subscriber; used during shutdown. Closing the
// connection unblocks each readPump, which owns channel cleanup.
func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.clients {
		for c := range subs {
			_ = c.conn.Close()
		}
	}
}
