package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type gaugeRecorder struct {
	mu     sync.Mutex
	values []int
}

func (g *gaugeRecorder) SetClients(n int) {
	g.mu.Lock()
	g.values = append(g.values, n)
	g.mu.Unlock()
}

func (g *gaugeRecorder) last() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.values) == 0 {
		return -1
	}
	return g.values[len(g.values)-1]
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(msg, v); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
}

func TestHub_BroadcastToAllByDefault(t *testing.T) {
	gauge := &gaugeRecorder{}
	hub := NewHub(nil, gauge)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	if gauge.last() != 1 {
		t.Errorf("gauge = %d, want 1", gauge.last())
	}

	if err := hub.Publish(context.Background(), "stock-price-topic", "AAPL", []byte(`{"symbol":"AAPL"}`)); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	readJSON(t, conn, &got)
	if got["symbol"] != "AAPL" {
		t.Errorf("got %v", got)
	}
}

func TestHub_Subscriptions(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	if err := conn.WriteJSON(SocketMessage{Action: "subscribe", Symbol: "msft"}); err != nil {
		t.Fatal(err)
	}
	var ack SubscriptionResponse
	readJSON(t, conn, &ack)
	if ack.Status != "success" || len(ack.Symbols) != 1 || ack.Symbols[0] != "MSFT" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	hub.Publish(context.Background(), "t", "AAPL", []byte(`{"symbol":"AAPL"}`))
	hub.Publish(context.Background(), "t", "MSFT", []byte(`{"symbol":"MSFT"}`))

	var got map[string]any
	readJSON(t, conn, &got)
	if got["symbol"] != "MSFT" {
		t.Errorf("expected only MSFT, got %v", got)
	}

	if err := conn.WriteJSON(SocketMessage{Action: "explode"}); err != nil {
		t.Fatal(err)
	}
	var errResp ErrorResponse
	readJSON(t, conn, &errResp)
	if errResp.Error != "Unknown action" {
		t.Errorf("unexpected error response %+v", errResp)
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	gauge := &gaugeRecorder{}
	hub := NewHub(nil, gauge)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	dial(t, srv)
	dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	if gauge.last() != 0 {
		t.Errorf("gauge = %d, want 0", gauge.last())
	}

	// publishing with no clients is a no-op
	if err := hub.Publish(context.Background(), "t", "AAPL", nil); err != nil {
		t.Error(err)
	}
}
