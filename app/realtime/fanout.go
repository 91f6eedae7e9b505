// Package realtime fans notifications out to websocket and SSE clients.
//
// With Redis configured every emit is published on a pub/sub channel and
// each instance relays what it receives to its own clients, so a client sees
// events raised on any instance. Without Redis, emits go straight to the
// local transports.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

const publishTimeout = 2 * time.Second

// Emitter is a local transport. *ws.Hub and *sse.Broker satisfy it.
type Emitter interface {
	Emit(event string, payload any)
	EmitToRoom(room, event string, payload any)
}

// message is the pub/sub wire format.
type message struct {
	Room  string          `json:"room,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Fanout struct {
	local   []Emitter
	rdb     *redis.Client
	channel string
}

// New returns a fan-out over the given transports. rdb may be nil.
func New(rdb *redis.Client, channel string, local ...Emitter) *Fanout {
	return &Fanout{local: local, rdb: rdb, channel: channel}
}

// Emit broadcasts to every connected client.
func (f *Fanout) Emit(event string, payload any) { f.send("", event, payload) }

// EmitToRoom sends to clients that joined room.
func (f *Fanout) EmitToRoom(room, event string, payload any) { f.send(room, event, payload) }

func (f *Fanout) send(room, event string, payload any) {
	if f.rdb == nil {
		f.deliver(room, event, payload)
		return
	}

	data, err := json.Marshal(payload)
	if err == nil {
		var body []byte
		body, err = json.Marshal(message{Room: room, Event: event, Data: data})
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err = f.rdb.Publish(ctx, f.channel, body).Err()
			cancel()
		}
	}
	if err != nil {
		logger.Warn("realtime: publish failed, delivering locally", "event", event, "error", err)
		f.deliver(room, event, payload)
	}
}

func (f *Fanout) deliver(room, event string, payload any) {
	for _, e := range f.local {
		if room == "" {
			e.Emit(event, payload)
		} else {
			e.EmitToRoom(room, event, payload)
		}
	}
}

// Run relays messages from the pub/sub channel to the local transports until
// ctx is done. It returns immediately when Redis is not configured.
func (f *Fanout) Run(ctx context.Context) {
	if f.rdb == nil {
		return
	}
	sub := f.rdb.Subscribe(ctx, f.channel)
	defer sub.Close()

	logger.Info("realtime: relaying", "channel", f.channel)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			f.relay(msg.Payload)
		}
	}
}

func (f *Fanout) relay(raw string) {
	var m message
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m.Event == "" {
		logger.Warn("realtime: dropping malformed relay message", "error", err)
		return
	}
	f.deliver(m.Room, m.Event, m.Data)
}
