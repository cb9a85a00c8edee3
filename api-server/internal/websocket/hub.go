package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/api-server/internal/journal"
	"github.com/cx-tal-miterani/flight-surety/api-server/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
	pageSize   = 256
	// encoded frames kept for clients replaying the same backlog
	frameCacheSize = 4096
	// retryDelay paces catch-up for clients whose send buffer filled
	retryDelay = 50 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client represents a WebSocket client following the journal
type Client struct {
	id    uuid.UUID
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	types []string
	// next is owned by the hub's Run goroutine
	next uint64
}

// Hub streams committed journal records to WebSocket clients. Each client
// starts at its own offset; backlog and live records flow through the same
// cursor so nothing is skipped between the two.
type Hub struct {
	store      journal.Store
	feed       *journal.Feed
	frames     *lru.Cache
	logger     *zap.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a new Hub
func NewHub(store journal.Store, feed *journal.Feed, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	// lru.New only fails for a non-positive size
	frames, _ := lru.New(frameCacheSize)
	return &Hub{
		store:      store,
		feed:       feed,
		frames:     frames,
		logger:     logger.With(zap.String("component", "websocket")),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	var retry <-chan time.Time
	for {
		head, changed := h.feed.Changed()
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered",
				zap.Stringer("client", client.id),
				zap.Uint64("from", client.next),
				zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Debug("client unregistered",
					zap.Stringer("client", client.id),
					zap.Int("remaining", len(h.clients)))
			}
			continue

		case <-changed:
			head = h.feed.Head()

		case <-retry:
		}

		retry = nil
		lagging, err := h.pump(ctx, head)
		if err != nil {
			h.logger.Warn("failed to read journal", zap.Error(err))
		}
		if lagging || err != nil {
			retry = time.After(retryDelay)
		}
	}
}

// pump delivers records below head to every client behind it. It reports
// whether any client is still behind.
func (h *Hub) pump(ctx context.Context, head uint64) (bool, error) {
	from, behind := head, false
	for client := range h.clients {
		if client.next < from {
			from, behind = client.next, true
		}
	}
	if !behind {
		return false, nil
	}

	limit := pageSize
	if n := head - from; n < uint64(limit) {
		limit = int(n)
	}
	recs, err := h.store.Read(ctx, from, limit)
	if err != nil {
		return true, err
	}

	for _, rec := range recs {
		var data []byte
		for client := range h.clients {
			if client.next != rec.Offset {
				continue
			}
			if !matches(client.types, rec.Type) {
				client.next = rec.Offset + 1
				continue
			}
			if len(client.send) == cap(client.send) {
				continue
			}
			if data == nil {
				if data, err = h.frame(rec); err != nil {
					return true, err
				}
			}
			client.send <- data
			client.next = rec.Offset + 1
		}
	}

	for client := range h.clients {
		if client.next < head {
			return true, nil
		}
	}
	return false, nil
}

// frame returns the encoded event for rec
func (h *Hub) frame(rec journal.Record) ([]byte, error) {
	if v, ok := h.frames.Get(rec.Offset); ok {
		return v.([]byte), nil
	}
	data, err := json.Marshal(service.EventToModel(rec))
	if err != nil {
		return nil, err
	}
	h.frames.Add(rec.Offset, data)
	return data, nil
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

func matches(types []string, typ string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}

// subscribe hands the client to Run. It returns false once the hub has stopped.
func (h *Hub) subscribe(ctx context.Context, client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ServeWS handles GET /api/events/ws?from=N&type=A,B
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	client := &Client{
		id:   uuid.New(),
		hub:  h,
		send: make(chan []byte, sendBuffer),
	}
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		from, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid from offset", http.StatusBadRequest)
			return
		}
		client.next = from
	}
	if v := q.Get("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				client.types = append(client.types, t)
			}
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client.conn = conn

	if !h.subscribe(r.Context(), client) {
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames and detects the peer going away
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
