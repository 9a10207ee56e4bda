package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// Hub broadcasts notifications to WebSocket subscribers.
type Hub struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

// subscriber is a single WebSocket connection.
type subscriber struct {
	conn  *websocket.Conn
	route model.Route // empty = all routes
	send  chan []byte
	done  chan struct{}
	once  sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// NewHub creates a new Hub.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}

	return &Hub{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Name implements notify.Sink.
func (h *Hub) Name() string { return "stream" }

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var route model.Route
	switch strings.ToLower(r.URL.Query().Get("route")) {
	case "":
	case "sale":
		route = model.RouteSale
	case "listing":
		route = model.RouteListing
	default:
		http.Error(w, "route must be sale or listing", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn:  conn,
		route: route,
		send:  make(chan []byte, h.cfg.BufferSize),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("stream subscriber connected",
		"remote", r.RemoteAddr,
		"route", route,
	)

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Send broadcasts n to every matching subscriber. Slow subscribers miss the message.
func (h *Hub) Send(ctx context.Context, n model.Notification) error {
	data, err := json.Marshal(newMessage(n))
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	for sub := range h.subscribers {
		if sub.route != "" && sub.route != n.Route {
			continue
		}
		select {
		case sub.send <- data:
		default:
			h.logger.Warn("subscriber buffer full, dropping message",
				"remote", sub.conn.RemoteAddr().String(),
				"id", n.ID,
			)
		}
	}

	return nil
}

// Close disconnects all subscribers and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
	sub.close()
}

// readLoop discards client frames and keeps the pong deadline current.
// It exits when the connection fails or is closed by the peer.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(4096)
	sub.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			select {
			case <-sub.done:
			default:
				h.logger.Debug("stream subscriber disconnected", "error", err)
			}
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		sub.conn.Close()
	}()

	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("stream write failed", "error", err)
				h.remove(sub)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := sub.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				h.logger.Debug("failed to send ping", "error", err)
				h.remove(sub)
				return
			}
		}
	}
}
