package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressUpdate is pushed to a client while its optimization runs.
type ProgressUpdate struct {
	Type           string    `json:"type"`
	OptimizationID string    `json:"optimization_id,omitempty"`
	Nodes          int       `json:"nodes"`
	Incumbent      float64   `json:"incumbent,omitempty"`
	HasIncumbent   bool      `json:"has_incumbent"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	Message        string    `json:"message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Message types.
const (
	TypeProgress  = "progress"
	TypeCompleted = "completed"
	TypeFailed    = "failed"
)

// Client represents a WebSocket client
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

type envelope struct {
	clientID string
	data     []byte
}

// Hub maintains active WebSocket connections keyed by client ID. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	byID       map[string]map[*Client]bool
	outbound   chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Logger
	mutex      sync.RWMutex

	// OnCountChange, when set, is called from Run with the connection count.
	OnCountChange func(int)
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		byID:       make(map[string]map[*Client]bool),
		outbound:   make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mutex.Unlock()
			h.countChanged()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			if h.byID[client.ID] == nil {
				h.byID[client.ID] = make(map[*Client]bool)
			}
			h.byID[client.ID][client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.countChanged()

			h.logger.WithFields(logrus.Fields{
				"client_id":     client.ID,
				"total_clients": total,
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			h.removeLocked(client)
			total := len(h.clients)
			h.mutex.Unlock()
			h.countChanged()

			h.logger.WithFields(logrus.Fields{
				"client_id":     client.ID,
				"total_clients": total,
			}).Info("WebSocket client disconnected")

		case msg := <-h.outbound:
			h.mutex.Lock()
			var slow []*Client
			for client := range h.byID[msg.clientID] {
				select {
				case client.send <- msg.data:
				default:
					slow = append(slow, client)
				}
			}
			for _, client := range slow {
				h.logger.WithField("client_id", client.ID).Warn("Dropping slow WebSocket client")
				h.removeLocked(client)
			}
			h.mutex.Unlock()
			if len(slow) > 0 {
				h.countChanged()
			}
		}
	}
}

// removeLocked drops client and closes its send channel exactly once.
func (h *Hub) removeLocked(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)
	if set := h.byID[client.ID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.byID, client.ID)
		}
	}
}

func (h *Hub) countChanged() {
	if h.OnCountChange != nil {
		h.OnCountChange(h.ConnectionCount())
	}
}

// HandleWebSocket upgrades the request and registers the client under the
// :client_id path parameter.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	clientID := c.Param("client_id")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		ID:   clientID,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
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

// SendToClient queues message for every connection of clientID. It never
// blocks the caller; messages are dropped when the hub is backed up.
func (h *Hub) SendToClient(clientID string, message interface{}) {
	if clientID == "" {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}
	select {
	case h.outbound <- envelope{clientID: clientID, data: data}:
	default:
		h.logger.WithField("client_id", clientID).Warn("WebSocket hub backlog full, dropping message")
	}
}

// HasClient reports whether clientID has at least one open connection.
func (h *Hub) HasClient(clientID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.byID[clientID]) > 0
}

// ConnectionCount returns the total number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump drains the connection so pongs and close frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
