// Package feed broadcasts decoded mouse events to websocket clients.
package feed

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frudas24/mousetap/internal/dispatch"
	"github.com/frudas24/mousetap/internal/logging"
	"github.com/frudas24/mousetap/internal/mouse"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	writeWait      = 2 * time.Second
	maxInbound     = 512
	defaultQueue   = 64
	closeGraceWait = time.Second
)

// Locator maps a screen position to a 1-based monitor index, 0 when unknown.
type Locator func(x, y int32) int

// Options configures a Hub.
type Options struct {
	// Token, when set, must be presented as ?token= or a Bearer header.
	Token string
	// Queue is the per-client backlog; events beyond it are dropped.
	Queue  int
	Locate Locator
	Logger *zap.Logger
}

// Stats are the hub counters.
type Stats struct {
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// Hub fans event snapshots out to every connected websocket client.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	wg       sync.WaitGroup
	upgrader websocket.Upgrader
	token    string
	queue    int
	locate   Locator
	logger   *zap.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Ensure Hub implements the consumer interface.
var _ dispatch.Consumer = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(opts Options) *Hub {
	queue := opts.Queue
	if queue <= 0 {
		queue = defaultQueue
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		token:   opts.Token,
		queue:   queue,
		locate:  opts.Locate,
		logger:  logging.OrNop(opts.Logger).Named("feed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams events until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.isClosed() {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, h.queue),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	defer h.wg.Done()
	defer h.unregister(c)

	h.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))
	go h.writeLoop(c)

	conn.SetReadLimit(maxInbound)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// authorized checks the configured token, if any.
func (h *Hub) authorized(r *http.Request) bool {
	return CheckToken(r, h.token)
}

// CheckToken reports whether r carries token as ?token= or a Bearer header.
// An empty token accepts every request.
func CheckToken(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// isClosed reports whether Close has been called.
func (h *Hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// register adds c unless the hub is closed. Each registration holds two
// wait group slots: the reader and the writer.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	return true
}

// unregister removes c and stops its writer.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	h.logger.Debug("client disconnected")
}

// writeLoop drains the client queue onto the socket.
func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	for {
		select {
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGraceWait))
			_ = c.conn.Close()
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				_ = c.conn.Close()
				c.close()
				return
			}
			h.sent.Add(1)
		}
	}
}

// close tells the writer to send a close frame and shut the socket.
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Consume broadcasts a snapshot of ev. It never blocks on slow clients.
func (h *Hub) Consume(_ context.Context, ev *mouse.Event) error {
	snap := ev.Snapshot()
	if h.locate != nil {
		snap.Monitor = h.locate(ev.Pos.X, ev.Pos.Y)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Broadcast queues data for every client, dropping it for clients whose
// queue is full.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stats returns the hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients: h.Clients(),
		Sent:    h.sent.Load(),
		Dropped: h.dropped.Load(),
	}
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
}
