// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"audiovis/internal/log"
)

// defaultMinSendInterval caps the broadcast rate so a fast analysis loop
// cannot flood slow clients. 16ms keeps full 60fps throughput.
const defaultMinSendInterval = 16 * time.Millisecond

// WebSocketTransport broadcasts feature snapshots as JSON to every client
// connected on /features.
type WebSocketTransport struct {
	addr     string
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	broadcast chan any
	done      chan struct{}
	server    *http.Server

	minSendInterval time.Duration
	lastSend        time.Time

	closed    bool // Guarded by clientsMu.
	closeOnce sync.Once
}

// NewWebSocketTransport starts a WebSocket server on the given port and
// returns the transport. The server runs until Close.
func NewWebSocketTransport(port string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: ":" + port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Visualizer clients are local pages served from anywhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:         make(map[*websocket.Conn]bool),
		broadcast:       make(chan any, 256),
		done:            make(chan struct{}),
		minSendInterval: defaultMinSendInterval,
	}

	wst.start()
	return wst
}

func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/features", wst.handleWebSocket)

	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: mux,
	}

	go func() {
		log.Infof("WebSocketTransport: listening on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("WebSocketTransport: server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("WebSocketTransport: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Infof("WebSocketTransport: client connected, total: %d", total)

	// The stream is one-way; the read loop only notices disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.clientsMu.Lock()
		delete(wst.clients, conn)
		total := len(wst.clients)
		wst.clientsMu.Unlock()
		conn.Close()
		log.Infof("WebSocketTransport: client disconnected, total: %d", total)
	}()
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(data); err != nil {
					log.Debugf("WebSocketTransport: send error, dropping client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. It never blocks: frames are dropped when
// the queue is full, when the previous send was under the rate limit, or
// after Close.
func (wst *WebSocketTransport) Send(data any) error {
	wst.clientsMu.Lock()
	closed := wst.closed
	wst.clientsMu.Unlock()
	if closed {
		return nil
	}

	now := time.Now()
	if now.Sub(wst.lastSend) < wst.minSendInterval {
		return nil
	}
	wst.lastSend = now

	select {
	case wst.broadcast <- data:
	default:
		// Queue full; this frame is stale by the next tick anyway.
	}
	return nil
}

// Close disconnects all clients and shuts down the server. Safe against
// concurrent and late Sends: the broadcast channel is never closed, the
// drain goroutine is stopped through done instead.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Infof("WebSocketTransport: closing")

		wst.clientsMu.Lock()
		wst.closed = true
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		close(wst.done)

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
