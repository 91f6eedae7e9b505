package controllers

import (
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/sse"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

// RealtimeController serves the websocket and SSE notification streams.
// Mount it behind middleware.OptionalAuth; anonymous clients only get
// broadcasts.
type RealtimeController struct {
	hub    *ws.Hub
	broker *sse.Broker
}

func NewRealtimeController(h *ws.Hub, b *sse.Broker) *RealtimeController {
	return &RealtimeController{hub: h, broker: b}
}

func (rc *RealtimeController) WebSocket(w http.ResponseWriter, r *http.Request) {
	rc.hub.Serve(w, r, identityFrom(r))
}

// Events streams broadcasts, plus the caller's own room when authenticated.
func (rc *RealtimeController) Events(w http.ResponseWriter, r *http.Request) {
	var rooms []string
	if id := identityFrom(r); id != nil {
		rooms = append(rooms, strconv.FormatUint(uint64(id.UserID), 10))
	}
	rc.broker.Serve(w, r, rooms...)
}

func identityFrom(r *http.Request) *auth.Identity {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}
