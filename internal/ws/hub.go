// Package ws serves live dashboard updates over WebSocket. The hub owns
// the set of connected observers; the scan pipeline publishes events
// through it without knowing about individual connections.
package ws

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards and scanner UIs connect from other devices on the
	// venue network, so origin checking is left to the auth layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Hub struct {
	// Registered observer connections.
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log,
	}
}

// Run owns the client set. Register/unregister and fan-out all happen
// on this single goroutine, so no locking is needed.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("WS", fmt.Sprintf("observer connected (%d total)", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("WS", fmt.Sprintf("observer disconnected (%d total)", len(h.clients)))
			}
		case message := <-h.broadcast:
			// A client with a full send buffer is assumed dead or
			// stuck; it gets dropped rather than stalling the rest.
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish implements broadcast.Publisher. Marshalling failures are
// logged and dropped; observers must never block the scan path.
func (h *Hub) Publish(event broadcast.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("WS", fmt.Sprintf("failed to marshal event: %v", err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("WS", "broadcast queue full, dropping event")
	}
}

// ServeWS upgrades an HTTP request to a websocket observer connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS", fmt.Sprintf("upgrade failed: %v", err))
		return
	}

	client := NewClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}
