package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tejashwikalptaru/pixeltunes/internal/domain"
	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Frame is the envelope of every outbound websocket message.
type Frame struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// InboundFrame is a media report sent by a browser client.
type InboundFrame struct {
	Type     string  `json:"type"`
	TrackID  string  `json:"trackId"`
	Token    uint64  `json:"token"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error"`
}

// MediaMessage converts the frame into a controller message.
// ok is false for unknown frame types.
func (f InboundFrame) MediaMessage() (ports.MediaMessage, bool) {
	msg := ports.MediaMessage{
		Kind:    ports.MediaMessageKind(f.Type),
		TrackID: f.TrackID,
		Token:   f.Token,
	}
	switch msg.Kind {
	case ports.MediaClock:
		msg.Time = f.Time
	case ports.MediaMetadata:
		msg.Duration = f.Duration
	case ports.MediaEnded:
	case ports.MediaRejected:
		reason := f.Error
		if reason == "" {
			reason = "rejected by client"
		}
		msg.Err = domain.NewMediaError("play", "", reason, domain.ErrPlaybackRejected)
	default:
		return ports.MediaMessage{}, false
	}
	return msg, true
}

// InboundHandler receives every well-formed inbound frame.
type InboundHandler func(ctx context.Context, frame InboundFrame)

// Client is one websocket connection.
type Client struct {
	ID   string
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans frames out to every connected client and collects inbound media reports.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	handler InboundHandler

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once

	now func() time.Time
}

// NewHub creates a hub. Call Run in its own goroutine before accepting clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// SetInboundHandler installs the receiver for inbound media reports.
func (h *Hub) SetInboundHandler(handler InboundHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected",
				slog.String("client", client.ID),
				slog.Int("clients", count))

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.logger.Warn("dropping slow websocket client", slog.String("client", client.ID))
				h.removeClient(client)
			}

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.Send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("websocket client disconnected",
			slog.String("client", client.ID),
			slog.Int("clients", count))
	}
}

// Register adds a client. It returns false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast encodes data into a frame of the given type and queues it for every client.
// Frames are dropped when the broadcast queue is full.
func (h *Hub) Broadcast(frameType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", frameType, err)
	}
	message, err := json.Marshal(Frame{
		Type:      frameType,
		Timestamp: h.now().UnixMilli(),
		Data:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", frameType, err)
	}

	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return nil
	default:
		h.logger.Warn("broadcast queue full, dropping frame", slog.String("type", frameType))
		return nil
	}
}

// PublishEvent forwards a bus event to every client.
func (h *Hub) PublishEvent(event domain.Event) {
	frame := eventPayload(event)
	if err := h.Broadcast(string(event.Type()), frame); err != nil {
		h.logger.Warn("failed to forward event", slog.String("type", string(event.Type())), slog.Any("error", err))
	}
}

// eventPayload adds the fields that do not survive plain JSON encoding.
func eventPayload(event domain.Event) any {
	if n, ok := event.(domain.NotificationEvent); ok {
		out := struct {
			Kind    domain.NotificationKind `json:"kind"`
			Message string                  `json:"message"`
			Error   string                  `json:"error,omitempty"`
		}{Kind: n.Kind, Message: n.Message}
		if n.Err != nil {
			out.Error = n.Err.Error()
		}
		return out
	}
	return event
}

// Attach upgrades an HTTP request into a client and starts its pumps.
func (h *Hub) Attach(ctx context.Context, conn *websocket.Conn) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
	if !h.Register(client) {
		_ = conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump(ctx, h.dispatch)
	return client
}

func (h *Hub) dispatch(ctx context.Context, client *Client, frame InboundFrame) {
	h.mu.RLock()
	handler := h.handler
	h.mu.RUnlock()

	if handler == nil {
		h.logger.Debug("inbound frame ignored, no handler", slog.String("client", client.ID), slog.String("type", frame.Type))
		return
	}
	handler(ctx, frame)
}

// ReadPump decodes inbound frames until the connection fails.
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, frame InboundFrame)) {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Warn("websocket read failed", slog.String("client", c.ID), slog.Any("error", err))
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.Hub.logger.Warn("malformed inbound frame", slog.String("client", c.ID), slog.Any("error", err))
			continue
		}
		handler(ctx, c, frame)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
