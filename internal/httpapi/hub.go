package httpapi

import (
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"deletutor/internal/domain"
	"deletutor/internal/usecase"
)

const (
	EventSession = "session"
	EventTick    = "tick"
	EventError   = "error"

	writeWait = 5 * time.Second
)

// Event is the websocket message pushed to browser clients.
type Event struct {
	Type    string           `json:"type"`
	Status  *domain.Status   `json:"status,omitempty"`
	Elapsed int              `json:"elapsed,omitempty"`
	Label   string           `json:"label,omitempty"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
	Detail  string           `json:"detail,omitempty"`
}

type hubClient struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *hubClient) safeWriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub fans session events out to every connected websocket client. It
// implements ports.EventSink for the browser shell.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*hubClient]bool
}

func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
		clients: make(map[*hubClient]bool),
	}
}

// ServeWS upgrades the request and keeps the client registered until its
// connection closes.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[http] websocket upgrade failed: %v", err)
		return
	}

	client := &hubClient{id: uuid.NewString(), conn: conn}
	h.register(client)
	defer h.unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) StatusChanged(status domain.Status) {
	h.broadcast(Event{Type: EventSession, Status: &status})
}

func (h *Hub) RecorderTick(elapsed int, label string) {
	h.broadcast(Event{Type: EventTick, Elapsed: elapsed, Label: label})
}

func (h *Hub) SessionError(code domain.ErrorCode, detail string) {
	h.broadcast(Event{Type: EventError, Code: code, Message: usecase.ErrorTitle(code), Detail: detail})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.conn.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) register(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	log.Printf("[http] websocket client %s connected (%d total)", client.id, len(h.clients))
}

func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	_ = client.conn.Close()
	log.Printf("[http] websocket client %s disconnected (%d total)", client.id, len(h.clients))
}

func (h *Hub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if err := client.safeWriteJSON(event); err != nil {
			log.Printf("[http] websocket write to %s failed: %v", client.id, err)
			go h.unregister(client)
		}
	}
}
