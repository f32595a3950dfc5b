package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"kpiboard/internal/infrastructure"
	"kpiboard/pkg/contracts/domain"
)

// Message types sent to browsers
const (
	TypeConnection = "connection"
	TypeKPIUpdate  = "kpi:update"
)

// Message is the envelope of every server push
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// KPIUpdate is the data of a kpi:update message
type KPIUpdate struct {
	Rows map[domain.KPIID][]string `json:"rows"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	pingPeriod time.Duration
	pongWait   time.Duration

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.ForComponent(logger, "websocket.hub"),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetHeartbeat overrides the ping interval and pong deadline of clients
// registered afterwards. The ping period must stay below the pong wait.
func (h *Hub) SetHeartbeat(ping, pong time.Duration) {
	if ping <= 0 || pong <= ping {
		return
	}
	h.mu.Lock()
	h.pingPeriod, h.pongWait = ping, pong
	h.mu.Unlock()
}

func (h *Hub) heartbeat() (ping, pong time.Duration) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pingPeriod, h.pongWait
}

// Start runs the hub loop in the background. Calling it on a running hub is
// a no-op; a stopped hub starts again with fresh channels.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	select {
	case <-h.quit:
		h.quit = make(chan struct{})
		h.done = make(chan struct{})
	default:
	}
	quit, done := h.quit, h.done
	h.mu.Unlock()

	go h.run(quit, done)
}

// run is the hub's main loop. It returns once quit is closed.
func (h *Hub) run(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			ctx := infrastructure.WithTraceID(context.Background(), client.traceID)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := encode(TypeConnection, map[string]string{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// fanOut sends message to every client. Clients whose buffer is full are dropped.
func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent++
		default:
			close(client.send)
			delete(h.clients, client)
			h.droppedClients++
			h.logger.Warn("Client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
	h.logger.Debug("Broadcast sent",
		slog.Int("client_count", len(h.clients)),
		slog.Int("message_size", len(message)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Stop shuts the loop down and disconnects every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	quit, done := h.quit, h.done
	h.mu.Unlock()

	close(quit)
	<-done
}

// stopping returns the quit channel of the current run
func (h *Hub) stopping() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.quit
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stopping():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopping():
	}
}

// Broadcast queues a message of the given type for every client
func (h *Hub) Broadcast(messageType string, data interface{}) {
	payload, err := encode(messageType, data, "")
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", messageType))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.stopping():
	}
}

// NotifyKPIUpdate pushes the values written in a poll cycle as a kpi:update message
func (h *Hub) NotifyKPIUpdate(rows map[domain.KPIID][]string) {
	h.Broadcast(TypeKPIUpdate, KPIUpdate{Rows: rows})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}

func encode(messageType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
