package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/domain"
	"go.uber.org/zap"
)

// LiveHub pushes newly saved roast records to connected feed clients so the
// recent-activity view refreshes without polling. Slow consumers are dropped
// rather than buffered without bound.
type LiveHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*liveClient]bool
	closed  bool
}

type liveClient struct {
	conn *websocket.Conn
	send chan *domain.RoastRecord
}

func NewLiveHub(logger *zap.Logger) *LiveHub {
	return &LiveHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Same permissive policy as the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*liveClient]bool),
	}
}

// Broadcast queues record for every connected client.
func (h *LiveHub) Broadcast(record *domain.RoastRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- record:
		default:
			h.logger.Warn("Dropping slow live feed client")
			go h.remove(client)
		}
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *LiveHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &liveClient{
		conn: conn,
		send: make(chan *domain.RoastRecord, constants.WebSocketConfig.SendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Live feed client connected", zap.Int("clients", total))

	go h.writePump(client)
	h.readPump(client)
}

// readPump discards inbound frames; its job is to notice disconnects.
func (h *LiveHub) readPump(client *liveClient) {
	defer h.remove(client)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHub) writePump(client *liveClient) {
	ticker := time.NewTicker(constants.WebSocketConfig.PingInterval)
	defer func() {
		ticker.Stop()
		h.remove(client)
	}()

	for {
		select {
		case record, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
			if err := client.conn.WriteJSON(record); err != nil {
				h.logger.Debug("Live feed write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *LiveHub) remove(client *liveClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	client.conn.Close()
}

// Close disconnects every client; the hub accepts no new connections after.
func (h *LiveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for client := range h.clients {
		close(client.send)
		client.conn.Close()
		delete(h.clients, client)
	}
}
