package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// Hub tracks connected websocket clients and pushes alerts to all of
// them. Slow clients are dropped rather than allowed to block the rest.
type Hub struct {
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	upgrader   websocket.Upgrader
	log        logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewHub creates a stopped hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Start launches the hub loop. Idempotent.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	h.running = true
	go h.run(loopCtx, h.done)
}

// Stop shuts the loop down, closing every client connection.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.cancel()
	h.running = false
	done := h.done
	h.mu.Unlock()
	<-done
}

// BroadcastAlert queues an alert for every connected client. Never
// blocks; when the queue is full the alert is dropped for the websocket
// path only.
func (h *Hub) BroadcastAlert(alert *entities.Alert) {
	payload, err := json.Marshal(map[string]any{"type": "alert", "payload": alert})
	if err != nil {
		h.log.Error("failed to encode alert broadcast", logger.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("alert broadcast queue full, dropping websocket update",
			logger.Uint64("alert_id", uint64(alert.ID)),
		)
	}
}

// Serve upgrades an HTTP request and attaches the client to the hub.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}

	client := &wsClient{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
		log:  h.log,
	}
	if err := h.addClient(client); err != nil {
		_ = conn.Close()
		return err
	}
	go client.writePump()
	go client.readPump()
	return nil
}

// addClient hands the client to the hub loop. The loop may stop between
// the running check and the send, so the handoff also watches the loop's
// done channel instead of blocking on register forever.
func (h *Hub) addClient(client *wsClient) error {
	h.mu.Lock()
	running := h.running
	done := h.done
	h.mu.Unlock()
	if !running {
		return fmt.Errorf("failed to accept websocket client: hub not running")
	}

	select {
	case h.register <- client:
		return nil
	case <-done:
		return fmt.Errorf("failed to accept websocket client: hub stopped")
	}
}

func (h *Hub) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	clients := make(map[*wsClient]struct{})
	defer func() {
		for client := range clients {
			close(client.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			clients[client] = struct{}{}
			h.log.Debug("websocket client connected",
				logger.String("client_id", client.id),
				logger.String("remote", client.conn.RemoteAddr().String()),
			)
		case client := <-h.unregister:
			if _, ok := clients[client]; ok {
				delete(clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Blocked client; drop it.
					delete(clients, client)
					close(client.send)
				}
			}
		}
	}
}
