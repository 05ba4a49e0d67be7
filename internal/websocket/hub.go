package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"backend/internal/auth"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionRefresher re-issues a session artifact; satisfied by service.AuthService
type SessionRefresher interface {
	Refresh(ctx context.Context, tokenString string) (*service.TokenStatusResponse, string, error)
}

// Client represents a single connected WebSocket client. Each client carries
// its own session refresh monitor; the monitored token is updated whenever the
// client reports a newer one or the monitor refreshes it server-side.
//
// Send is never closed. The hub closes done when it drops the client, and
// every sender selects on done, so the monitor goroutines can keep queueing
// messages safely while the client is being torn down.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	done    chan struct{}
	monitor *auth.Monitor

	mu           sync.Mutex
	sessionToken string
}

// queue delivers a message to the client unless it is gone or falling behind
func (c *Client) queue(payload []byte) {
	select {
	case c.Send <- payload:
	case <-c.done:
	default:
	}
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.sessionToken = token
	c.mu.Unlock()
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// GetBroadcast exposes the broadcast channel for services pushing change events
func (h *Hub) GetBroadcast() chan []byte {
	return h.Broadcast
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Println("New WebSocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.done)
				log.Println("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow client; drop it. The map check above keeps a
					// later unregister from closing done twice.
					delete(h.clients, client)
					close(client.done)
				}
			}
			h.mu.Unlock()
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message := <-c.Send:
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// Fast track writing queued messages
			n := len(c.Send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-c.done:
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// inboundMessage is what clients may send upstream. Currently only a token
// update, so the monitor tracks the artifact the client actually holds.
type inboundMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.monitor.Stop()
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "session_token" && msg.Token != "" {
			c.setToken(msg.Token)
		}
	}
}

// watchSession forwards the monitor's lifecycle notifications to the client.
// An expired session is terminal: the monitor has already stopped itself, and
// the connection is closed after the notification is delivered. The goroutine
// also exits as soon as the hub drops the client, so a normal disconnect does
// not strand it on the notification channel.
func (c *Client) watchSession() {
	for {
		select {
		case n := <-c.monitor.Notifications():
			payload, _ := json.Marshal(map[string]interface{}{
				"type":         "session",
				"notification": n,
			})
			c.queue(payload)

			if n.Kind == auth.NotificationExpired {
				_ = c.Conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// ServeWs handles websocket requests from the peer. The connection is
// authenticated up front and then watched by a per-connection session monitor
// that refreshes the artifact proactively and pushes the new token down.
func ServeWs(hub *Hub, c *gin.Context, tokens *auth.TokenManager, sessions SessionRefresher, interval time.Duration) {
	// Authenticate via token query param
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if _, err := tokens.Parse(tokenString); err != nil {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}

	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), done: make(chan struct{}), sessionToken: tokenString}
	client.monitor = auth.NewMonitor(auth.MonitorConfig{
		Interval: interval,
		Introspect: func(ctx context.Context) (auth.Status, error) {
			return tokens.Status(client.currentToken()), nil
		},
		Refresh: func(ctx context.Context) (auth.Status, error) {
			_, newToken, err := sessions.Refresh(ctx, client.currentToken())
			if err != nil {
				return auth.Status{}, err
			}
			client.setToken(newToken)

			payload, _ := json.Marshal(map[string]interface{}{
				"type":  "session_token",
				"token": newToken,
			})
			client.queue(payload)
			return tokens.Status(newToken), nil
		},
	})

	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
	go client.watchSession()
	client.monitor.Start()
}
