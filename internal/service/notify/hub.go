// Package notify pushes dataset lifecycle events to connected dashboard
// clients over WebSocket, so open sessions refresh without polling.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"BattPulse/pkg/logger"
)

// Event kinds broadcast to clients.
const (
	EventDatasetParsed      = "dataset_parsed"
	EventDatasetInvalidated = "dataset_invalidated"
)

// Event is one lifecycle notification.
type Event struct {
	Kind      string    `json:"kind"`
	DatasetID string    `json:"dataset_id"`
	Stem      string    `json:"stem,omitempty"`
	At        time.Time `json:"at"`
}

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	clientBufSize  = 16
	readLimitBytes = 512
)

// Hub fans events out to subscribed connections. A slow client loses
// events rather than stalling the broadcaster.
type Hub struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same-origin policy is enforced upstream by CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[chan Event]struct{}),
	}
}

// Broadcast delivers the event to every connected client. Never blocks.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Client buffer full; drop the event for this client.
		}
	}
}

// ClientCount reports the number of active subscriptions.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, clientBufSize)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// Serve upgrades the request and streams events until the client
// disconnects or ctx is canceled.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Drain reads so close frames and pongs are processed.
	conn.SetReadLimit(readLimitBytes)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case ev := <-ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Error("marshal event", logger.Error(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return nil
			}
		}
	}
}
