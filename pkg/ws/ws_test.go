package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func startHub(t *testing.T) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id *auth.Identity
		if u := r.URL.Query().Get("user"); u != "" {
			n, _ := strconv.Atoi(u)
			id = &auth.Identity{UserID: uint(n), IsAdmin: r.URL.Query().Get("admin") == "1"}
		}
		hub.Serve(w, r, id)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitClients(t *testing.T, hub *ws.Hub, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_JoinOwnRoomOnly(t *testing.T) {
	hub, srv := startHub(t)
	owner := dial(t, srv, "user=1")
	other := dial(t, srv, "user=2")
	waitClients(t, hub, 2)

	require.NoError(t, owner.WriteJSON(frame{Event: "join", Data: "1"}))
	assert.Equal(t, frame{Event: "joined", Data: "1"}, read(t, owner))

	require.NoError(t, other.WriteJSON(frame{Event: "join", Data: "1"}))
	assert.Equal(t, "error", read(t, other).Event)

	hub.EmitToRoom("1", "order-status-updated", map[string]any{"status": "Shipped"})
	hub.Emit("stock-update", map[string]any{"newStock": 3})

	got := read(t, owner)
	assert.Equal(t, "order-status-updated", got.Event)
	assert.Equal(t, "stock-update", read(t, owner).Event)

	// the non-member sees only the broadcast
	assert.Equal(t, "stock-update", read(t, other).Event)
}

func TestHub_NumericRoomAndAdmin(t *testing.T) {
	hub, srv := startHub(t)
	admin := dial(t, srv, "user=9&admin=1")
	waitClients(t, hub, 1)

	require.NoError(t, admin.WriteJSON(frame{Event: "join", Data: 42}))
	assert.Equal(t, frame{Event: "joined", Data: "42"}, read(t, admin))

	require.NoError(t, admin.WriteJSON(frame{Event: "leave", Data: "42"}))
	assert.Equal(t, frame{Event: "left", Data: "42"}, read(t, admin))

	hub.EmitToRoom("42", "order-status-updated", nil)
	hub.Emit("ping", "x")
	assert.Equal(t, "ping", read(t, admin).Event)
}

func TestHub_AnonymousCannotJoin(t *testing.T) {
	hub, srv := startHub(t)
	anon := dial(t, srv, "")
	waitClients(t, hub, 1)

	require.NoError(t, anon.WriteJSON(frame{Event: "join", Data: "1"}))
	assert.Equal(t, "error", read(t, anon).Event)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "user=1")
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}
