package stream

import (
	"sort"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one websocket subscriber. With no subscriptions it receives every
// symbol.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu      sync.RWMutex
	symbols map[string]struct{}

	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		ID:      id,
		Conn:    conn,
		Send:    make(chan []byte, buffer),
		symbols: make(map[string]struct{}),
	}
}

func (c *Client) Subscribe(symbol string) {
	c.mu.Lock()
	c.symbols[symbol] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) Unsubscribe(symbol string) {
	c.mu.Lock()
	delete(c.symbols, symbol)
	c.mu.Unlock()
}

// Wants reports whether a message keyed by symbol should reach this client.
func (c *Client) Wants(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

// Symbols returns the current subscriptions, sorted.
func (c *Client) Symbols() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.Send) })
}
