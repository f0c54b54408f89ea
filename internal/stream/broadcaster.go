package stream

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Subscriber is one connected client. Writes are serialized through a
// per-connection mutex (gorilla allows a single concurrent writer), which
// also gives each subscriber FIFO delivery in broadcast order.
type Subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send writes one serialized event to the subscriber.
func (s *Subscriber) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// SendEvent serializes and writes one event to the subscriber. Used for
// unicast replies (snapshot, all_questions).
func (s *Subscriber) SendEvent(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Send(data)
}

// Broadcaster manages WebSocket connections and fans out canvas events.
//
// Every accepted state change emits exactly one canonical event to every
// currently connected subscriber. Delivery order per subscriber matches the
// order events reach Broadcast; there is no cross-subscriber ordering
// guarantee.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]bool
	metrics     *Metrics
}

// NewBroadcaster creates a new event broadcaster. A nil metrics disables
// counters.
func NewBroadcaster(metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[*Subscriber]bool),
		metrics:     metrics,
	}
}

// Subscribe registers a WebSocket connection and returns its subscriber
// handle, used for unicast replies and for Unsubscribe.
func (b *Broadcaster) Subscribe(conn *websocket.Conn) *Subscriber {
	sub := &Subscriber{conn: conn}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscriber. A disconnecting client simply stops
// receiving further broadcasts.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
}

// Broadcast sends an event to all subscribers.
func (b *Broadcaster) Broadcast(event *Event) {
	// Serialize event once
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal canvas event", "error", err, "type", event.Type)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.IncEventsBroadcast(event.Type)
	}
	for sub := range b.subscribers {
		if err := sub.Send(data); err != nil {
			if b.metrics != nil {
				b.metrics.IncSubscriberWriteErrors()
			}
			slog.Warn("failed to send event to websocket client",
				"error", err,
				"type", event.Type,
			)
			// Connection will be cleaned up when the client's reader exits
		}
	}
}

// ConnectionCount returns the number of active subscribers.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
