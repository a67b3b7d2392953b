package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	clientBuffer = 32
	writeWait    = 10 * time.Second
)

// Message is the frame pushed to every connected client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Broadcaster pushes an event to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, data any) error
}

// Hub tracks the websocket clients of this process. Delivery is best
// effort: a client whose buffer is full misses the frame.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	closed  bool
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("realtime"),
		clients: make(map[chan []byte]struct{}),
	}
}

// Broadcast encodes the frame and fans it out locally.
func (h *Hub) Broadcast(_ context.Context, event string, data any) error {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}
	h.Deliver(frame)
	return nil
}

// Deliver fans an already encoded frame out to local clients.
func (h *Hub) Deliver(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for send := range h.clients {
		select {
		case send <- frame:
		default:
			h.logger.Warn("client buffer full, frame dropped")
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe() (<-chan []byte, func()) {
	send := make(chan []byte, clientBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(send)
		return send, func() {}
	}
	h.clients[send] = struct{}{}
	h.mu.Unlock()

	return send, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[send]; ok {
			delete(h.clients, send)
			close(send)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for send := range h.clients {
		delete(h.clients, send)
		close(send)
	}
}

// UpgradeRequired rejects plain HTTP requests on the websocket route.
func UpgradeRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler serves one websocket connection until either side goes away.
// Inbound frames are read and discarded.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		send, unsubscribe := h.subscribe()
		defer unsubscribe()

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case frame, ok := <-send:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					h.logger.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	})
}
