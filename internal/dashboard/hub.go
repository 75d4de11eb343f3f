package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/perpdebt/vault-engine/internal/metrics"
)

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must be > pingInterval
	maxMessageSize = 512              // clients only send pongs
	sendBufferSize = 256
)

// Message is a JSON frame pushed to subscribers of a topic.
type Message struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Tracker is told when a topic gains or loses a subscriber.
type Tracker interface {
	Acquire(topic Topic)
	Release(topic Topic)
}

// Client is one WebSocket connection subscribed to a single topic.
type Client struct {
	id    uuid.UUID
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic Topic
}

type envelope struct {
	topic Topic
	data  []byte
}

// Hub routes published frames to the clients of each topic.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	tracker  Tracker
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates a hub. An empty allowedOrigins accepts any origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, 512),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Track sets the subscription tracker. Call before Run.
func (h *Hub) Track(t Tracker) {
	h.tracker = t
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()
			if h.tracker != nil {
				h.tracker.Acquire(client.topic)
			}
			h.logger.Debug("ws client subscribed", "client", client.id, "topic", client.topic.String())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if client.topic != env.topic {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					// Slow client; the frame is superseded by the next tick.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// drop removes client. Caller holds h.mu.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	metrics.WebSocketClients.Dec()
	if h.tracker != nil {
		h.tracker.Release(client.topic)
	}
}

// Publish queues msg for the subscribers of topic. It never blocks; frames
// are dropped when the queue is full.
func (h *Hub) Publish(topic Topic, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("ws marshal failed", "topic", topic.String(), "err", err)
		return
	}
	select {
	case h.broadcast <- envelope{topic: topic, data: data}:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles GET /api/v1/ws?topic=auction:<id>|vault:<id>.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic, err := ParseTopic(r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}

	client := &Client{
		id:    uuid.New(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		topic: topic,
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

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and unregisters the client on disconnect.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("ws unexpected close", "client", c.id, "err", err)
			}
			return
		}
	}
}
