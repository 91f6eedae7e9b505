// Package listeners subscribes the storefront's reactions to domain events.
package listeners

import (
	"context"
	"strconv"
	"sync"

	"github.com/shashiranjanraj/storefront/app/events"
	"github.com/shashiranjanraj/storefront/app/jobs"
	"github.com/shashiranjanraj/storefront/app/realtime"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/queue"
)

// JobQueue is satisfied by *queue.Manager.
type JobQueue interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// Listeners holds what the handlers need. Any field may be nil.
type Listeners struct {
	Realtime realtime.Emitter
	Cache    *cache.Store
	Queue    JobQueue

	mu  sync.Mutex
	low map[uint]bool // products already alerted while low
}

// Register subscribes l to bus.
func Register(bus *event.Bus, l *Listeners) {
	l.low = make(map[uint]bool)
	bus.Listen(events.StockUpdate, l.onStockUpdate)
	bus.Listen(events.OrderStatusUpdated, l.onOrderStatus)
	bus.Listen(events.OrderPlaced, l.onOrderPlaced)
	bus.Listen(events.ProductChanged, l.onProductChanged)
}

func (l *Listeners) onStockUpdate(ctx context.Context, payload any) {
	ev, ok := payload.(events.StockUpdated)
	if !ok {
		return
	}
	if l.Realtime != nil {
		l.Realtime.Emit(events.StockUpdate, ev)
	}
	if err := l.Cache.Del(ctx, services.ProductCacheKey(ev.ProductID)); err != nil {
		logger.WithCtx(ctx).Warn("listeners: cache invalidation failed", "product_id", ev.ProductID, "error", err)
	}
	cause := ev.Cause
	if cause == "" {
		cause = events.CauseAdmin
	}
	metrics.StockAdjustments.WithLabelValues(cause).Inc()

	if l.crossedLow(ev) && l.Queue != nil {
		if err := l.Queue.Dispatch(ctx, jobs.NewLowStockAlert(ev.ProductID)); err != nil {
			logger.WithCtx(ctx).Error("listeners: queue low-stock alert", "product_id", ev.ProductID, "error", err)
		}
	}
}

// crossedLow reports whether the product just went low. It stays quiet for
// further drops until the product is restocked above its threshold.
func (l *Listeners) crossedLow(ev events.StockUpdated) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !ev.LowStock() {
		delete(l.low, ev.ProductID)
		return false
	}
	if l.low[ev.ProductID] {
		return false
	}
	l.low[ev.ProductID] = true
	return true
}

func (l *Listeners) onOrderStatus(ctx context.Context, payload any) {
	ev, ok := payload.(events.OrderStatusChanged)
	if !ok {
		return
	}
	if l.Realtime != nil {
		l.Realtime.EmitToRoom(strconv.FormatUint(uint64(ev.OwnerID), 10), events.OrderStatusUpdated, ev)
	}
	if ev.Previous == ev.Status {
		return
	}
	metrics.OrderTransitions.WithLabelValues(string(ev.Previous), string(ev.Status)).Inc()
	logger.WithCtx(ctx).Info("order status changed", "order_id", ev.OrderID, "from", ev.Previous, "to", ev.Status)
}

func (l *Listeners) onOrderPlaced(ctx context.Context, payload any) {
	ev, ok := payload.(events.OrderPlacedEvent)
	if !ok || ev.Order == nil {
		return
	}
	metrics.OrdersPlaced.Inc()
	logger.WithCtx(ctx).Info("order placed",
		"order_id", ev.Order.ID,
		"reference", ev.Order.Reference,
		"user_id", ev.Order.UserID,
		"total", ev.Order.TotalPrice.String(),
	)
}

func (l *Listeners) onProductChanged(ctx context.Context, payload any) {
	ev, ok := payload.(events.ProductChangedEvent)
	if !ok {
		return
	}
	_ = l.Cache.Del(ctx, services.ProductCacheKey(ev.ProductID))
}
