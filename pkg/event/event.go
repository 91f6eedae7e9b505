// Package event is the in-process domain event bus.
//
// Services fire events after their transaction commits; listeners react
// (realtime fan-out, cache invalidation, metrics, queued jobs). With a worker
// pool attached, Fire returns immediately and each listener runs on the pool;
// a saturated pool drops the event rather than blocking the caller. Pooled
// listeners run concurrently, so two events fired back to back may be
// handled in either order.
package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/workerpool"
)

// Handler receives an event payload. The context is detached from the
// request that fired the event but keeps its logger.
type Handler func(ctx context.Context, payload any)

// Submitter runs tasks asynchronously. *workerpool.Pool satisfies it.
type Submitter interface {
	Submit(task func()) error
}

// Bus dispatches named events to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     Submitter
}

// NewBus returns a bus. A nil pool makes Fire synchronous, which tests rely on.
func NewBus(pool Submitter) *Bus {
	return &Bus{handlers: make(map[string][]Handler), pool: pool}
}

// Listen registers h for name.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Fire dispatches payload to every handler of name.
func (b *Bus) Fire(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[name]...)
	b.mu.RUnlock()

	if len(hs) == 0 {
		return
	}

	log := logger.WithCtx(ctx)
	detached := logger.InjectLogger(context.WithoutCancel(ctx), log)

	for _, h := range hs {
		h := h
		if b.pool == nil {
			safeCall(detached, name, h, payload)
			continue
		}

		err := b.pool.Submit(func() { safeCall(detached, name, h, payload) })
		if err != nil {
			metrics.EventsDropped.WithLabelValues(name).Inc()
			if errors.Is(err, workerpool.ErrPoolFull) {
				log.Warn("event: dropped, pool saturated", "event", name)
			} else {
				log.Warn("event: dropped", "event", name, "error", err)
			}
		}
	}
}

func safeCall(ctx context.Context, name string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked",
				"event", name,
				"error", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(ctx, payload)
}
