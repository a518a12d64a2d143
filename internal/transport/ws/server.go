package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"griduniverse.ai/internal/sim/game"
)

// Hub is the shared channel between a running game and its browsers.
// Published messages go to every connection; text frames read from any
// connection go to the attached handler, usually a game router.
type Hub struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan []byte
	handler func(raw string)
}

var _ game.Publisher = (*Hub)(nil)

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		log:     logger,
		clients: map[uint64]chan []byte{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Attach routes inbound frames to handler until the returned detach is called.
func (h *Hub) Attach(handler func(raw string)) (detach func()) {
	h.mu.Lock()
	h.handler = handler
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.handler = nil
		h.mu.Unlock()
	}
}

// AttachGame routes inbound frames to gm's router.
func (h *Hub) AttachGame(gm *game.Game) (detach func()) {
	return h.Attach(gm.Router().Send)
}

// Publish sends v as JSON to every connection. A slow connection loses its
// oldest queued message instead of stalling the game.
func (h *Hub) Publish(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.clients {
		sendLatest(out, b)
	}
	return nil
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id := h.nextID.Add(1)
		out := make(chan []byte, 64)
		h.mu.Lock()
		h.clients[id] = out
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.clients, id)
			h.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if typ != websocket.TextMessage {
				continue
			}
			h.mu.Lock()
			handler := h.handler
			h.mu.Unlock()
			if handler == nil {
				continue
			}
			handler(string(msg))
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
