// internal/status/hub.go
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Hub keeps the latest Snapshot and fans every update out to websocket
// clients. Publish never blocks on a client.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	last    Snapshot
	clients map[int64]*client
	nextID  int64
}

// NewHub returns an empty hub. A nil logger uses log.Default().
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[int64]*client),
	}
}

// Publish stores s as the latest snapshot and queues it for every client.
func (h *Hub) Publish(s Snapshot) {
	if s.Time.IsZero() {
		s.Time = time.Now()
	}

	h.mu.Lock()
	h.last = s
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	h.mu.Unlock()

	for _, c := range out {
		c.send(s, h.logger)
	}
}

// Last returns the latest snapshot.
func (h *Hub) Last() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Clients is the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler serves GET /status (latest snapshot as JSON) and /ws (feed).
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/ws", h.handleWebSocket)
	return mux
}

// Serve runs the HTTP server on ln until ctx is done.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
		h.closeAll()
	}()

	h.logger.Printf("status: monitor listening on %s", ln.Addr())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Last())
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("status: websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		id:    atomic.AddInt64(&h.nextID, 1),
		conn:  conn,
		queue: make(chan Snapshot, clientBuffer),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	last := h.last
	h.mu.Unlock()

	h.logger.Printf("status: client %d connected (remote=%s)", c.id, r.RemoteAddr)

	// the current state first, then every update
	c.send(last, h.logger)

	go c.writePump(h.logger)
	c.readPump()

	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()

	h.logger.Printf("status: client %d disconnected", c.id)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	h.mu.Unlock()

	for _, c := range out {
		c.close()
	}
}

// ---- CLIENT ----

type client struct {
	id    int64
	conn  *websocket.Conn
	queue chan Snapshot
	done  chan struct{}
	once  sync.Once
}

func (c *client) send(s Snapshot, logger *log.Logger) {
	select {
	case c.queue <- s:
	case <-c.done:
	default:
		logger.Printf("status: dropping update for client %d (queue full)", c.id)
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump only watches for the peer going away; clients send nothing.
func (c *client) readPump() {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(logger *log.Logger) {
	ping := time.NewTicker(30 * time.Second)
	defer func() {
		ping.Stop()
		c.close()
	}()

	for {
		select {
		case s := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(s); err != nil {
				logger.Printf("status: write to client %d failed: %v", c.id, err)
				return
			}

		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
