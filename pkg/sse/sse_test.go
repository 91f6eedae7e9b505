package sse_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/sse"
)

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestBroker_RoomsAndBroadcast(t *testing.T) {
	b := sse.NewBroker()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Serve(w, r, r.URL.Query().Get("room"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/?room=7", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	ev, _ := readEvent(t, body)
	assert.Equal(t, "ready", ev)

	b.EmitToRoom("8", "order-status-updated", map[string]string{"status": "Shipped"})
	b.EmitToRoom("7", "order-status-updated", map[string]string{"status": "Delivered"})
	b.Emit("stock-update", map[string]int{"newStock": 2})

	ev, data := readEvent(t, body)
	assert.Equal(t, "order-status-updated", ev)
	assert.JSONEq(t, `{"status":"Delivered"}`, data)

	ev, data = readEvent(t, body)
	assert.Equal(t, "stock-update", ev)
	assert.JSONEq(t, `{"newStock":2}`, data)
}

func TestBroker_UnsubscribeOnDisconnect(t *testing.T) {
	b := sse.NewBroker()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Serve(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	resp.Body.Close()
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}
