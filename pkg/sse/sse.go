// Package sse streams realtime events over Server-Sent Events for clients
// that cannot hold a websocket open.
//
// A Broker mirrors the websocket hub: broadcasts reach every subscriber and
// room events reach subscribers that listed the room when they connected.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

const subscriberBuffer = 32

// Stream is one open SSE response.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
}

// New sets the event-stream headers. It returns nil and writes a 500 if w
// cannot flush.
func New(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes one named event with a JSON payload.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	return s.write(event, payload)
}

// Comment writes a comment line, used as a heartbeat.
func (s *Stream) Comment(msg string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", msg); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *Stream) write(event string, payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

type message struct {
	event string
	data  []byte
}

// Subscription receives messages until the broker removes it.
type Subscription struct {
	rooms map[string]struct{}
	ch    chan message
}

// Broker fans events out to SSE subscribers.
type Broker struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}

	Heartbeat time.Duration
}

// NewBroker returns an empty broker with a 25s heartbeat.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{}), Heartbeat: 25 * time.Second}
}

// Subscribe registers a subscriber for broadcasts plus the given rooms.
func (b *Broker) Subscribe(rooms ...string) *Subscription {
	sub := &Subscription{rooms: make(map[string]struct{}, len(rooms)), ch: make(chan message, subscriberBuffer)}
	for _, r := range rooms {
		if r != "" {
			sub.rooms[r] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	metrics.RealtimeClients.WithLabelValues("sse").Set(float64(n))
	return sub
}

// Unsubscribe removes sub. Safe to call twice.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	n := len(b.subs)
	b.mu.Unlock()

	metrics.RealtimeClients.WithLabelValues("sse").Set(float64(n))
}

// Subscribers returns the number of active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Emit broadcasts to every subscriber.
func (b *Broker) Emit(event string, payload any) { b.publish("", event, payload) }

// EmitToRoom reaches subscribers of room only.
func (b *Broker) EmitToRoom(room, event string, payload any) { b.publish(room, event, payload) }

func (b *Broker) publish(room, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("sse: marshal failed", "event", event, "error", err)
		return
	}
	msg := message{event: event, data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if room != "" {
			if _, ok := sub.rooms[room]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- msg:
		default:
			metrics.RealtimeDropped.WithLabelValues("sse").Inc()
		}
	}
}

// Serve streams events to the client until it disconnects.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, rooms ...string) {
	stream := New(w, r)
	if stream == nil {
		return
	}

	sub := b.Subscribe(rooms...)
	defer b.Unsubscribe(sub)

	ticker := time.NewTicker(b.Heartbeat)
	defer ticker.Stop()

	_ = stream.Send("ready", map[string]any{"rooms": rooms})

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-sub.ch:
			if err := stream.write(msg.event, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			if err := stream.Comment("ping"); err != nil {
				return
			}
		}
	}
}
