// Package ws carries the websocket transport: connection lifecycle, the
// wire envelope, and the dispatcher that routes inbound events to room
// operations.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/numduel/internal/model"
)

// Handler consumes inbound traffic from the hub. Implemented by the
// Dispatcher; split out so the hub has no knowledge of game semantics.
type Handler interface {
	HandleMessage(ctx context.Context, conn model.ConnectionID, raw []byte)
	HandleDisconnect(ctx context.Context, conn model.ConnectionID)
}

// Hub owns every live websocket connection and fans outbound frames to
// them by ConnectionID. Rooms and game state live elsewhere; the hub only
// maps ids to sockets.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	handler  Handler

	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With(slog.String("component", "ws-hub")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The server carries no credentials and rooms are
				// unguessable, so cross-origin clients are allowed.
				return true
			},
		},
		clients: make(map[model.ConnectionID]*Client),
	}
}

// SetHandler wires the dispatcher in after construction. Must be called
// before the hub serves any connection.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// ServeHTTP upgrades the request and runs the connection's pumps. Each
// connection gets a fresh ConnectionID; there is no session resumption.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(model.ConnectionID(uuid.NewString()), h, conn)
	h.register(client)

	h.logger.Info("connection established",
		slog.String("connection_id", string(client.id)),
		slog.String("remote_addr", r.RemoteAddr))

	go client.writePump()
	go client.readPump()
}

// Send queues a frame for one connection. Unknown ids and full buffers
// drop the frame; event delivery is fire-and-forget.
func (h *Hub) Send(conn model.ConnectionID, message []byte) {
	h.mu.RLock()
	client, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- message:
	default:
		h.logger.Warn("send buffer full, dropping frame",
			slog.String("connection_id", string(conn)))
	}
}

// ConnectionCount reports the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close tears down every connection. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.closeSend()
		client.conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.id] = client
}

// unregister removes a connection and notifies the handler so the room
// layer can treat it as a leave.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if ok && current == client {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()
	if !ok || current != client {
		return
	}

	client.closeSend()
	h.logger.Info("connection closed", slog.String("connection_id", string(client.id)))
	h.handler.HandleDisconnect(context.Background(), client.id)
}
