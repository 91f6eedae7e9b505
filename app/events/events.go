// Package events names the domain events and their payloads. The JSON form
// of a payload is what realtime clients receive.
package events

import (
	"context"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
)

const (
	StockUpdate        = "stock-update"
	OrderStatusUpdated = "order-status-updated"
	OrderPlaced        = "order-placed"
	ProductChanged     = "product-changed"
)

// Causes of a stock change, used for metrics.
const (
	CauseOrder  = "order"
	CauseCancel = "cancel"
	CauseAdmin  = "admin"
)

// Dispatcher fires events; *event.Bus satisfies it.
type Dispatcher interface {
	Fire(ctx context.Context, name string, payload any)
}

type Actor struct {
	IsAdmin bool `json:"isAdmin"`
	UserID  uint `json:"userId"`
}

// StockUpdated is broadcast to every client. Updates for one product can
// arrive out of order; clients keep the one with the latest At.
type StockUpdated struct {
	ProductID         uint      `json:"productId"`
	ProductName       string    `json:"productName"`
	NewStock          int       `json:"newStock"`
	LowStockThreshold int       `json:"lowStockThreshold"`
	UpdatedBy         Actor     `json:"updatedBy"`
	At                time.Time `json:"at"`

	Cause string `json:"-"`
}

// LowStock reports whether the new stock is at or below the threshold.
func (e StockUpdated) LowStock() bool { return e.NewStock <= e.LowStockThreshold }

// OrderStatusChanged goes to the owner's room.
type OrderStatusChanged struct {
	OrderID uint               `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
	Order   *models.Order      `json:"order"`

	Previous models.OrderStatus `json:"-"`
	OwnerID  uint               `json:"-"`
}

type OrderPlacedEvent struct {
	Order *models.Order
}

// ProductChangedEvent invalidates cached reads of a product.
type ProductChangedEvent struct {
	ProductID uint
	Deleted   bool
}
