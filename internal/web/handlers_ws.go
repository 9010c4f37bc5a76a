package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"scenepanel/internal/controller"
)

// EventSnapshot is the type of the message that opens a client's stream and
// follows every watch change. Its data is the watched controller's current
// screen view, or the controller list when the client watches everything.
const EventSnapshot = "snapshot"

const (
	wsQueueSize  = 64
	wsEventQueue = 256
)

// WSHub fans panel events out to WebSocket clients. A client watching a
// controller receives that controller's events and the events not tied to
// any device; a client watching nothing receives everything.
type WSHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	logger  *slog.Logger

	events   chan controller.Event
	done     chan struct{}
	stopOnce sync.Once
}

type wsClient struct {
	conn  *websocket.Conn
	send  chan []byte
	watch atomic.Int64
}

func newWSClient(conn *websocket.Conn, watch int) *wsClient {
	c := &wsClient{conn: conn, send: make(chan []byte, wsQueueSize)}
	c.watch.Store(int64(watch))
	return c
}

// wants reports whether an event about device belongs on the client's stream.
func (c *wsClient) wants(device int) bool {
	w := int(c.watch.Load())
	return w == 0 || device == 0 || w == device
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
		events:  make(chan controller.Event, wsEventQueue),
		done:    make(chan struct{}),
	}
}

// Run encodes queued events and delivers them until Stop.
func (h *WSHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return
		case e := <-h.events:
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("ws marshal", "type", e.Type, "err", err)
				continue
			}
			h.deliver(e.Device, data)
		}
	}
}

func (h *WSHub) deliver(device int, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(device) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.drop(c)
			h.logger.Warn("ws client evicted (too slow)", "watch", c.watch.Load())
		}
	}
}

// drop closes a client's queue. h.mu must be held.
func (h *WSHub) drop(c *wsClient) {
	delete(h.clients, c)
	close(c.send)
}

// add registers c. It fails once the hub is stopped.
func (h *WSHub) add(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("ws client connected", "watch", c.watch.Load(), "total", len(h.clients))
	return true
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.drop(c)
	}
	h.logger.Debug("ws client disconnected", "total", len(h.clients))
}

// enqueue queues data for one registered client.
func (h *WSHub) enqueue(c *wsClient, data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		h.drop(c)
		return false
	}
}

// Publish queues an event for delivery. Events are dropped while the queue
// is full.
func (h *WSHub) Publish(e controller.Event) {
	select {
	case h.events <- e:
	default:
		h.logger.Warn("ws event queue full, dropping event", "type", e.Type, "device", e.Device)
	}
}

// Stop shuts the hub down. Safe to call multiple times.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// watchCommand is the only message clients send: the controller to follow,
// zero for all of them.
type watchCommand struct {
	Watch int `json:"watch"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	watch := 0
	if v := r.URL.Query().Get("device"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid device"})
			return
		}
		if _, err := s.panel.Controller(n); err != nil {
			s.writeError(w, err)
			return
		}
		watch = n
	}

	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}
	conn.SetReadLimit(4096)

	client := newWSClient(conn, watch)
	if !s.wsHub.add(client) {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		return
	}
	s.sendSnapshot(r.Context(), client)

	go s.wsWritePump(client)
	s.wsReadPump(client)
}

// sendSnapshot queues the snapshot for the client's current watch.
func (s *Server) sendSnapshot(ctx context.Context, client *wsClient) {
	data, err := s.snapshot(ctx, int(client.watch.Load()))
	if err != nil {
		s.logger.Warn("ws snapshot", "watch", client.watch.Load(), "err", err)
		return
	}
	s.wsHub.enqueue(client, data)
}

// snapshot encodes the state a client sees before any live event.
func (s *Server) snapshot(ctx context.Context, device int) ([]byte, error) {
	if device == 0 {
		controllers, err := s.panel.Controllers()
		if err != nil {
			return nil, err
		}
		if controllers == nil {
			controllers = []*controller.Controller{}
		}
		return json.Marshal(controller.Event{Type: EventSnapshot, Data: controllers})
	}
	screen, _, err := s.panel.Display(device)
	if err != nil {
		return nil, err
	}
	view, err := s.panel.View(ctx, device, screen)
	if err != nil {
		return nil, err
	}
	return json.Marshal(controller.Event{Type: EventSnapshot, Device: device, Data: view})
}

// handleCommand applies one client message.
func (s *Server) handleCommand(ctx context.Context, client *wsClient, msg []byte) error {
	var cmd watchCommand
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	if cmd.Watch < 0 {
		return fmt.Errorf("invalid watch %d", cmd.Watch)
	}
	if cmd.Watch != 0 {
		if _, err := s.panel.Controller(cmd.Watch); err != nil {
			return err
		}
	}
	client.watch.Store(int64(cmd.Watch))
	s.sendSnapshot(ctx, client)
	return nil
}

func (s *Server) wsWritePump(client *wsClient) {
	for msg := range client.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	client.conn.Close(websocket.StatusNormalClosure, "")
}

// wsReadPump reads watch commands until the connection or the hub closes.
func (s *Server) wsReadPump(client *wsClient) {
	defer s.wsHub.remove(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.wsHub.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		_, msg, err := client.conn.Read(ctx)
		if err != nil {
			return
		}
		if err := s.handleCommand(ctx, client, msg); err != nil {
			s.logger.Debug("ws command rejected", "err", err)
		}
	}
}
