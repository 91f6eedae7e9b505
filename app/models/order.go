package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

var OrderStatuses = []OrderStatus{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// transitions lists the allowed forward moves.
var transitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

// ParseOrderStatus accepts only the exact enum values.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether s may move to next. Same-status moves are
// not transitions.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Address string `gorm:"size:255" json:"address"`
	Phone   string `gorm:"size:50" json:"phone"`
}

type Order struct {
	Model
	Reference       string          `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	UserID          uint            `gorm:"not null;index" json:"userId"`
	User            *User           `json:"user,omitempty"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	PaymentMethod   string          `gorm:"size:50;not null;default:COD" json:"paymentMethod"`
	ItemsPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"itemsPrice"`
	ShippingPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shippingPrice"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"totalPrice"`
	Status          OrderStatus     `gorm:"size:20;not null;default:Processing;index" json:"status"`
	IsPaid          bool            `gorm:"not null;default:false" json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt"`
	IsDelivered     bool            `gorm:"not null;default:false" json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt"`
}

type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"orderId"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Name      string          `gorm:"size:120;not null" json:"name"`
	Image     string          `gorm:"size:500" json:"image"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Size      string          `gorm:"size:20" json:"size,omitempty"`
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
