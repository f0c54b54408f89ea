package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/mural/internal/canvas"
)

// newBroadcastHarness serves websocket upgrades that are subscribed to the
// broadcaster, and returns a dial helper.
func newBroadcastHarness(t *testing.T, b *Broadcaster) func() *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	subscribed := make(chan struct{}, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		sub := b.Subscribe(conn)
		subscribed <- struct{}{}
		defer func() {
			b.Unsubscribe(sub)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return func() *websocket.Conn {
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("failed to dial: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		select {
		case <-subscribed:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for subscription")
		}
		return conn
	}
}

func readBroadcast(t *testing.T, conn *websocket.Conn) *Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	return &event
}

func TestBroadcast_FanOut(t *testing.T) {
	b := NewBroadcaster(nil)
	dial := newBroadcastHarness(t, b)

	first := dial()
	second := dial()

	p := &canvas.Placement{ID: "p1", Label: "wolf", Owner: "alice"}
	b.Broadcast(PlacementCreated(p))

	for _, conn := range []*websocket.Conn{first, second} {
		event := readBroadcast(t, conn)
		if event.Type != EventPlacementCreated {
			t.Fatalf("expected %s, got %s", EventPlacementCreated, event.Type)
		}
		if event.Placement == nil || event.Placement.ID != "p1" {
			t.Errorf("unexpected placement payload: %+v", event.Placement)
		}
	}
}

func TestBroadcast_PerSubscriberOrder(t *testing.T) {
	b := NewBroadcaster(nil)
	dial := newBroadcastHarness(t, b)
	conn := dial()

	b.Broadcast(PlacementCreated(&canvas.Placement{ID: "p1"}))
	b.Broadcast(PlacementDeleted("p1"))

	first := readBroadcast(t, conn)
	second := readBroadcast(t, conn)
	if first.Type != EventPlacementCreated || second.Type != EventPlacementDeleted {
		t.Errorf("expected create before delete, got %s then %s", first.Type, second.Type)
	}
	if second.PlacementID != "p1" {
		t.Errorf("expected placement id p1, got %q", second.PlacementID)
	}
}

func TestBroadcast_NoSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	// Must not panic or block.
	b.Broadcast(PlacementDeleted("p1"))
}

func TestConnectionCount(t *testing.T) {
	b := NewBroadcaster(nil)
	dial := newBroadcastHarness(t, b)

	if b.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", b.ConnectionCount())
	}

	conn := dial()
	dial()
	if b.ConnectionCount() != 2 {
		t.Fatalf("expected 2 connections, got %d", b.ConnectionCount())
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for b.ConnectionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 connection after close, got %d", b.ConnectionCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendEvent_Unicast(t *testing.T) {
	b := NewBroadcaster(nil)
	upgrader := websocket.Upgrader{}
	subs := make(chan *Subscriber, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		subs <- b.Subscribe(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	var sub *Subscriber
	select {
	case sub = <-subs:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscription")
	}

	snapshot := Snapshot([]*canvas.Placement{{ID: "p1"}})
	if err := sub.SendEvent(snapshot); err != nil {
		t.Fatalf("SendEvent() failed: %v", err)
	}

	event := readBroadcast(t, conn)
	if event.Type != EventSnapshot {
		t.Fatalf("expected %s, got %s", EventSnapshot, event.Type)
	}
	if len(event.Placements) != 1 {
		t.Errorf("expected 1 placement in snapshot, got %d", len(event.Placements))
	}
}
