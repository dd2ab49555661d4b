package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Message is the envelope pushed to subscribers of an optimization run.
type Message struct {
	Type           string      `json:"type"`
	OptimizationID string      `json:"optimization_id"`
	Data           interface{} `json:"data"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Client is one websocket subscribed to one optimization run.
type Client struct {
	OptimizationID string
	Conn           *websocket.Conn
	Send           chan []byte
	Hub            *Hub
}

// Hub fans optimization progress out to the websockets watching each run.
type Hub struct {
	runs       map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

// NewHub creates a hub accepting connections from allowedOrigins. An empty
// list or "*" accepts any origin.
func NewHub(logger *logrus.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		runs:       make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), allowedOrigins)
		},
	}
	return h
}

func originAllowed(origin string, allowed []string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Run handles registration until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			clients, ok := h.runs[client.OptimizationID]
			if !ok {
				clients = make(map[*Client]bool)
				h.runs[client.OptimizationID] = clients
			}
			clients[client] = true
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"optimization_id": client.OptimizationID,
				"total_clients":   h.GetConnectionCount(),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if clients, ok := h.runs[client.OptimizationID]; ok && clients[client] {
				delete(clients, client)
				close(client.Send)
				if len(clients) == 0 {
					delete(h.runs, client.OptimizationID)
				}
			}
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"optimization_id": client.OptimizationID,
				"total_clients":   h.GetConnectionCount(),
			}).Info("WebSocket client disconnected")

		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for id, clients := range h.runs {
				for client := range clients {
					close(client.Send)
				}
				delete(h.runs, id)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// HandleWebSocket subscribes the connection to the run named in the path.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	optimizationID := c.Param("optimization_id")
	if _, err := uuid.Parse(optimizationID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid optimization ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		OptimizationID: optimizationID,
		Conn:           conn,
		Send:           make(chan []byte, sendBuffer),
		Hub:            h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastToRun sends payload to every client watching optimizationID.
// Messages for a client whose buffer is full are dropped.
func (h *Hub) BroadcastToRun(optimizationID string, messageType string, payload interface{}) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := h.runs[optimizationID]
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(Message{
		Type:           messageType,
		OptimizationID: optimizationID,
		Data:           payload,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	for client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.WithField("optimization_id", optimizationID).Warn("WebSocket client too slow, dropping message")
		}
	}
}

// GetConnectionCount returns the total number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	total := 0
	for _, clients := range h.runs {
		total += len(clients)
	}
	return total
}

// Subscribers returns the number of clients watching optimizationID.
func (h *Hub) Subscribers(optimizationID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.runs[optimizationID])
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
