// Package ws is the websocket transport for realtime notifications, built on
// gorilla/websocket.
//
// Every frame in either direction is a JSON envelope:
//
//	{"event": "stock-update", "data": {...}}
//
// Clients receive every broadcast. To receive events scoped to a room they
// send {"event":"join","data":"<room>"}; the hub's Authorize func decides
// whether the connection may join. Delivery is at-most-once: a client whose
// buffer is full misses the frame.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

const (
	EventJoin   = "join"
	EventLeave  = "leave"
	EventJoined = "joined"
	EventLeft   = "left"
	EventError  = "error"
)

// Envelope is the frame format.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one websocket connection. Identity is zero for anonymous clients.
type Client struct {
	Identity      auth.Identity
	Authenticated bool

	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]struct{} // owned by the hub goroutine
}

type inbound struct {
	client *Client
	env    Envelope
}

type outbound struct {
	room string // "" broadcasts
	data []byte
}

// Hub owns every connection and room membership. All maps are touched only
// by the Run goroutine.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound
	inbound    chan inbound
	done       chan struct{}
	count      atomic.Int64

	upgrader websocket.Upgrader

	// Authorize reports whether c may join room. Defaults to
	// AuthorizeOwnRoom.
	Authorize func(c *Client, room string) bool
	// OnMessage receives every inbound envelope that is not join/leave.
	OnMessage func(c *Client, env Envelope)
}

// NewHub creates a Hub. Start it with Run.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		outbound:   make(chan outbound, 1024),
		inbound:    make(chan inbound, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		Authorize: AuthorizeOwnRoom,
	}
}

// AuthorizeOwnRoom lets an authenticated client join the room named after
// its own user id; admins may join any room.
func AuthorizeOwnRoom(c *Client, room string) bool {
	if !c.Authenticated {
		return false
	}
	return c.Identity.IsAdmin || room == strconv.FormatUint(uint64(c.Identity.UserID), 10)
}

// Run processes registrations, room changes and emits until ctx is done,
// then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.outbound:
			h.deliver(msg)

		case in := <-h.inbound:
			h.handle(in)
		}
	}
}

// Emit broadcasts event to every connected client. It never blocks.
func (h *Hub) Emit(event string, payload any) {
	h.enqueue("", event, payload)
}

// EmitToRoom sends event to clients that joined room. It never blocks.
func (h *Hub) EmitToRoom(room, event string, payload any) {
	h.enqueue(room, event, payload)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int { return int(h.count.Load()) }

// Serve upgrades the request and registers the connection. id may be nil
// for anonymous clients.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, id *auth.Identity) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("ws: upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
	if id != nil {
		c.Identity, c.Authenticated = *id, true
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) enqueue(room, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		logger.Error("ws: encode failed", "event", event, "error", err)
		return
	}

	select {
	case h.outbound <- outbound{room: room, data: data}:
	default:
		metrics.RealtimeDropped.WithLabelValues("websocket").Inc()
	}
}

func (h *Hub) deliver(msg outbound) {
	targets := h.clients
	if msg.room != "" {
		targets = h.rooms[msg.room]
	}
	for c := range targets {
		h.push(c, msg.data)
	}
}

func (h *Hub) push(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		metrics.RealtimeDropped.WithLabelValues("websocket").Inc()
	}
}

func (h *Hub) handle(in inbound) {
	c := in.client
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch in.env.Event {
	case EventJoin, EventLeave:
		room := roomName(in.env.Data)
		if room == "" {
			h.reply(c, EventError, "room is required")
			return
		}
		if in.env.Event == EventLeave {
			h.leave(c, room)
			h.reply(c, EventLeft, room)
			return
		}
		if h.Authorize == nil || !h.Authorize(c, room) {
			h.reply(c, EventError, "not allowed to join room "+room)
			return
		}
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][c] = struct{}{}
		c.rooms[room] = struct{}{}
		h.reply(c, EventJoined, room)

	default:
		if h.OnMessage != nil {
			h.OnMessage(c, in.env)
		}
	}
}

func (h *Hub) reply(c *Client, event string, payload any) {
	if data, err := encode(event, payload); err == nil {
		h.push(c, data)
	}
}

func (h *Hub) leave(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for room := range c.rooms {
		h.leave(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.RealtimeClients.WithLabelValues("websocket").Set(float64(len(h.clients)))
}

// roomName accepts "42" or 42.
func roomName(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{event, payload})
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("ws: unexpected close", "error", err)
			}
			if _, ok := err.(*json.SyntaxError); ok {
				continue
			}
			return
		}

		select {
		case c.hub.inbound <- inbound{client: c, env: env}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
