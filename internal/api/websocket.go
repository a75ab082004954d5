package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket message types
const (
	EventJobState      = "job_state"
	EventDeviceAdded   = "device_added"
	EventDeviceRemoved = "device_removed"
	EventCommand       = "command"
	EventResponse      = "response"
	EventError         = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// commandData is the payload of a command event sent by a client.
type commandData struct {
	Command string `json:"command"`
}

// Hub tracks connected clients and fans events out to them.
type Hub struct {
	clients map[*WSClient]bool
	mu      sync.RWMutex
	log     *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*WSClient]bool),
		log:     log,
	}
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client. Clients with a full send buffer
// miss the event.
func (h *Hub) Broadcast(event string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	message := WSMessage{Event: event, Data: data}
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.log.Debug("websocket send buffer full, dropping event", zap.String("event", event))
		}
	}
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
	}
	s.hub.add(client)
	s.log.Info("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.hub.remove(c)
		c.conn.Close()
		c.server.log.Info("websocket client disconnected")
	}()

	for {
		var msg struct {
			Event string      `json:"event"`
			Data  commandData `json:"data"`
		}
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Event {
		case EventCommand:
			result := c.server.executor.Execute(context.Background(), msg.Data.Command)
			c.reply(WSMessage{Event: EventResponse, Data: result})
		default:
			c.reply(WSMessage{Event: EventError, Data: map[string]string{"error": "unknown event: " + msg.Event}})
		}
	}
}

func (c *WSClient) reply(msg WSMessage) {
	c.server.hub.mu.RLock()
	defer c.server.hub.mu.RUnlock()
	if !c.server.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
