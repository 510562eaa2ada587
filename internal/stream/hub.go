// Package stream serves published prices to websocket clients as a live feed.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"stockgen/internal/pricing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var _ pricing.Publisher = (*Hub)(nil)

// ClientGauge is told the client count whenever it changes.
type ClientGauge interface {
	SetClients(n int)
}

// SocketMessage is a request sent by a client.
type SocketMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Symbol string `json:"symbol"`
}

// SubscriptionResponse acknowledges a SocketMessage.
type SubscriptionResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Symbols []string `json:"symbols"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Hub keeps the connected clients and fans published payloads out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	upgrader websocket.Upgrader
	gauge    ClientGauge
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger, gauge ClientGauge) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		gauge:  gauge,
		logger: logger,
	}
}

// Publish delivers payload to every client interested in key. Clients whose
// buffer is full miss the message. It never fails.
func (h *Hub) Publish(_ context.Context, _ string, key string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.Wants(key) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Debug("client buffer full, skipping message", zap.String("client", client.ID), zap.String("symbol", key))
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and starts the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.New().String(), conn, sendBuffer)
	h.register(client)

	go h.writePump(client)
	go h.readPump(client)
}

// Close drops every connection. Each client's readPump then unregisters it.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.Conn.Close()
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.reportClients()
	h.mu.Unlock()
	h.logger.Info("stream client connected", zap.String("client", c.ID))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	if ok {
		h.reportClients()
	}
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("stream client disconnected", zap.String("client", c.ID))
	}
}

// reportClients must be called with h.mu held for writing.
func (h *Hub) reportClients() {
	if h.gauge != nil {
		h.gauge.SetClients(len(h.clients))
	}
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		h.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}

		reply := h.handleMessage(c, message)
		b, err := json.Marshal(reply)
		if err != nil {
			continue
		}
		// replies share the send queue so only writePump touches the conn
		select {
		case c.Send <- b:
		default:
		}
	}
}

func (h *Hub) handleMessage(c *Client, message []byte) any {
	var msg SocketMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return ErrorResponse{Error: "Invalid message format"}
	}

	symbol := pricing.NormalizeSymbol(msg.Symbol)
	switch msg.Action {
	case "subscribe":
		if symbol == "" {
			return ErrorResponse{Error: "symbol is required"}
		}
		c.Subscribe(symbol)
		return SubscriptionResponse{Status: "success", Message: "Subscribed to " + symbol, Symbols: c.Symbols()}
	case "unsubscribe":
		if symbol == "" {
			return ErrorResponse{Error: "symbol is required"}
		}
		c.Unsubscribe(symbol)
		return SubscriptionResponse{Status: "success", Message: "Unsubscribed from " + symbol, Symbols: c.Symbols()}
	default:
		return ErrorResponse{Error: "Unknown action"}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
