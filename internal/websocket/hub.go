package websocket

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	BroadcastAudits       bool   `yaml:"broadcast_audits" mapstructure:"broadcast_audits"`
	BroadcastReplacements bool   `yaml:"broadcast_replacements" mapstructure:"broadcast_replacements"`
	BroadcastRules        bool   `yaml:"broadcast_rules" mapstructure:"broadcast_rules"`
	BroadcastConnections  bool   `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	Username              string `yaml:"username" mapstructure:"username"`
	Password              string `yaml:"password" mapstructure:"password"`
}

// Hub maintains the set of active clients and broadcasts operation events to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	broadcast  chan Event
	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	config *HubConfig
	logger *zap.Logger

	mu    sync.RWMutex
	stats *HubStats
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
}

// NewHub creates a new WebSocket hub
func NewHub(config *HubConfig, logger *zap.Logger) *Hub {
	if config == nil {
		config = &HubConfig{}
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     config,
		logger:     logger,
		stats:      &HubStats{},
	}
}

// Run handles client registration and broadcasting until ctx is cancelled.
// Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event, nil)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
	}
	h.stats.ActiveConnections = 0
	h.logger.Info("WebSocket hub stopped")
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections++
	h.stats.LastConnectionTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	if h.config.BroadcastConnections {
		h.broadcastEvent(connectionEvent("connected", client), client)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.Send)
		h.stats.ActiveConnections--
	}
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("Client disconnected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	if h.config.BroadcastConnections {
		h.broadcastEvent(connectionEvent("disconnected", client), nil)
	}
}

func connectionEvent(action string, client *Client) Event {
	return Event{
		Type:      EventTypeConnection,
		Timestamp: time.Now(),
		Data: ConnectionEvent{
			Action:    action,
			ClientID:  client.ID,
			ClientIP:  client.IP,
			UserAgent: client.UserAgent,
		},
	}
}

// broadcastEvent delivers event to every subscribed client except skip.
// Clients whose send buffer is full are dropped.
func (h *Hub) broadcastEvent(event Event, skip *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	h.stats.LastBroadcastTime = time.Now()

	for client := range h.clients {
		if client == skip || !subscribed(client, event.Type) {
			continue
		}
		select {
		case client.Send <- event:
			h.stats.TotalMessages++
		default:
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("client_id", client.ID),
			)
			delete(h.clients, client)
			close(client.Send)
			h.stats.ActiveConnections--
		}
	}
}

func subscribed(client *Client, eventType EventType) bool {
	if client.Subscription == nil {
		return true
	}
	for _, t := range client.Subscription.Events {
		if t == eventType {
			return true
		}
	}
	return false
}

// BroadcastEvent queues an event for all clients if its type is enabled
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeAuditCompleted:
		return h.config.BroadcastAudits
	case EventTypeReplaceCompleted:
		return h.config.BroadcastReplacements
	case EventTypeImportCommitted, EventTypeRulesChanged:
		return h.config.BroadcastRules
	case EventTypeConnection:
		return h.config.BroadcastConnections
	default:
		return false
	}
}

// HandleWebSocket upgrades the request and attaches the client to the hub.
// Basic auth is required when a username is configured.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.config.Username != "" {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(h.config.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(h.config.Password)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Conn:        conn,
		Send:        make(chan Event, 256),
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
		IP:          clientIP(r),
		UserAgent:   r.UserAgent(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

func (h *Hub) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Error("Failed to write WebSocket message",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
			}
			return
		}
		h.handleClientMessage(client, msg)
	}
}

func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		sub := msg.Data
		h.mu.Lock()
		client.Subscription = &sub
		h.mu.Unlock()
		h.logger.Info("Client subscription updated",
			zap.String("client_id", client.ID),
			zap.Any("events", sub.Events),
		)
	case "ping":
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.clients[client] {
			return
		}
		select {
		case client.Send <- Event{Type: EventTypePong, Timestamp: time.Now(), Data: map[string]string{"message": "pong"}}:
		default:
		}
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := *h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
