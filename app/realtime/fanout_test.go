package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	room, event string
	payload     any
}

type fakeEmitter struct {
	mu  sync.Mutex
	got []sent
}

func (f *fakeEmitter) Emit(event string, payload any) { f.EmitToRoom("", event, payload) }

func (f *fakeEmitter) EmitToRoom(room, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, sent{room, event, payload})
}

func TestFanout_LocalDelivery(t *testing.T) {
	a, b := &fakeEmitter{}, &fakeEmitter{}
	f := New(nil, "unused", a, b)

	f.Emit("stock-update", map[string]int{"newStock": 3})
	f.EmitToRoom("42", "order-status-updated", "Shipped")

	for _, e := range []*fakeEmitter{a, b} {
		require.Len(t, e.got, 2)
		assert.Equal(t, "", e.got[0].room)
		assert.Equal(t, "stock-update", e.got[0].event)
		assert.Equal(t, "42", e.got[1].room)
	}
}

func TestFanout_RelayDecodesMessages(t *testing.T) {
	local := &fakeEmitter{}
	f := New(nil, "ch", local)

	f.relay(`{"room":"7","event":"order-status-updated","data":{"orderId":1}}`)
	f.relay(`not json`)
	f.relay(`{"data":1}`)

	require.Len(t, local.got, 1)
	assert.Equal(t, "7", local.got[0].room)
	raw, ok := local.got[0].payload.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"orderId":1}`, string(raw))
}

func TestFanout_PublishFailureFallsBackToLocal(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()
	local := &fakeEmitter{}
	f := New(rdb, "ch", local)

	f.EmitToRoom("3", "order-status-updated", map[string]string{"status": "Shipped"})

	require.Len(t, local.got, 1)
	assert.Equal(t, "3", local.got[0].room)
}
