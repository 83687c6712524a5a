package service

import (
	"net/http"
	"sync"

	"chronovault/internal/events"
	"chronovault/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Broadcaster pushes committed contract events to websocket
// subscribers (dashboards poll state, subscribe here for events).
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

type frame struct {
	Event   string       `json:"event"`
	Message string       `json:"message"`
	Data    events.Event `json:"data"`
}

func New() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Emit implements events.Sink.
func (b *Broadcaster) Emit(e events.Event) {
	payload, err := sonic.Marshal(frame{Event: e.Name(), Message: e.String(), Data: e})
	if err != nil {
		logger.Error("stream: encode event: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			delete(b.clients, conn)
		}
	}
}

func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()

	// Reader loop only detects disconnect; subscribers never send.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				b.mu.Lock()
				delete(b.clients, conn)
				b.mu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}()
}

func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		_ = conn.Close()
		delete(b.clients, conn)
	}
}
