package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/events"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

// OrderLineInput is one line item as sent by the client. Name, image and
// price are informational; the catalog row is authoritative.
type OrderLineInput struct {
	ProductID uint             `json:"productId"`
	Quantity  int              `json:"quantity"`
	Size      string           `json:"size" validate:"nullable,max=20"`
	Name      string           `json:"name"`
	Image     string           `json:"image"`
	Price     *decimal.Decimal `json:"price"`
}

type ShippingInput struct {
	Address string `json:"address" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"required,max=50"`
}

type OrderInput struct {
	Items           []OrderLineInput `json:"orderItems" validate:"dive"`
	ShippingAddress ShippingInput    `json:"shippingAddress" validate:"dive"`
	PaymentMethod   string           `json:"paymentMethod" validate:"nullable,max=50"`
	ShippingPrice   decimal.Decimal  `json:"shippingPrice" validate:"gte=0"`
	ItemsPrice      *decimal.Decimal `json:"itemsPrice"`
	TotalPrice      *decimal.Decimal `json:"totalPrice"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// OrderService is the order ledger. Stock moves with the order in the same
// transaction, and stock-update events are fired after commit.
type OrderService struct {
	db       *gorm.DB
	orders   *repositories.OrderRepository
	products *repositories.ProductRepository
	events   events.Dispatcher
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, d events.Dispatcher) *OrderService {
	return &OrderService{
		db:       db,
		orders:   repositories.NewOrderRepository(db),
		products: repositories.NewProductRepository(db),
		events:   d,
		now:      time.Now,
	}
}

// NewReference returns an order reference: creation time plus a uuid.
func NewReference(t time.Time) string {
	return t.UTC().Format("20060102150405") + "-" + uuid.NewString()
}

func insufficientStock(name string, available int) *Error {
	return Validation("Insufficient stock for %s. Only %d available.", name, available)
}

// Create validates every line against current stock, persists the order and
// decrements stock atomically. Either all of it happens or none of it does.
func (s *OrderService) Create(ctx context.Context, actor auth.Identity, in OrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, Validation("No order items")
	}

	var (
		ids      []uint
		wanted   = make(map[uint]int)
		declared = make(map[uint]string)
	)
	for _, line := range in.Items {
		label := lineLabel(line)
		if line.ProductID == 0 {
			return nil, NotFound("Product not found: %s", label)
		}
		if line.Quantity < 1 {
			return nil, Validation("Invalid quantity for %s", label)
		}
		if _, seen := wanted[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
			declared[line.ProductID] = label
		}
		wanted[line.ProductID] += line.Quantity
	}

	var (
		order   *models.Order
		changes []events.StockUpdated
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		found, err := products.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			p, ok := found[id]
			if !ok {
				return NotFound("Product not found: %s", declared[id])
			}
			if p.Stock < wanted[id] {
				return insufficientStock(p.Name, p.Stock)
			}
		}

		order = s.buildOrder(actor, in, found)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		for _, id := range ids {
			p := found[id]
			ok, err := products.DecrementStock(ctx, id, wanted[id])
			if err != nil {
				return err
			}
			stock, err := products.Stock(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return insufficientStock(p.Name, stock)
			}
			changes = append(changes, events.StockUpdated{
				ProductID:         id,
				ProductName:       p.Name,
				NewStock:          stock,
				LowStockThreshold: p.LowStockThreshold,
				UpdatedBy:         events.Actor{IsAdmin: actor.IsAdmin, UserID: actor.UserID},
				At:                s.now(),
				Cause:             events.CauseOrder,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.checkDeclaredTotals(ctx, in, order)
	for _, c := range changes {
		fire(ctx, s.events, events.StockUpdate, c)
	}
	fire(ctx, s.events, events.OrderPlaced, events.OrderPlacedEvent{Order: order})
	return order, nil
}

func (s *OrderService) buildOrder(actor auth.Identity, in OrderInput, products map[uint]*models.Product) *models.Order {
	items := make([]models.OrderItem, 0, len(in.Items))
	itemsPrice := decimal.Zero
	for _, line := range in.Items {
		p := products[line.ProductID]
		item := models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  line.Quantity,
			Size:      strings.TrimSpace(line.Size),
		}
		itemsPrice = itemsPrice.Add(item.LineTotal())
		items = append(items, item)
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "COD"
	}
	return &models.Order{
		Reference: NewReference(s.now()),
		UserID:    actor.UserID,
		Items:     items,
		ShippingAddress: models.ShippingAddress{
			Address: strings.TrimSpace(in.ShippingAddress.Address),
			Phone:   strings.TrimSpace(in.ShippingAddress.Phone),
		},
		PaymentMethod: method,
		ItemsPrice:    itemsPrice,
		ShippingPrice: in.ShippingPrice,
		TotalPrice:    itemsPrice.Add(in.ShippingPrice),
		Status:        models.StatusProcessing,
	}
}

// checkDeclaredTotals logs when the client's totals disagree with ours.
func (s *OrderService) checkDeclaredTotals(ctx context.Context, in OrderInput, o *models.Order) {
	if (in.ItemsPrice != nil && !in.ItemsPrice.Equal(o.ItemsPrice)) ||
		(in.TotalPrice != nil && !in.TotalPrice.Equal(o.TotalPrice)) {
		logger.WithCtx(ctx).Warn("orders: client totals differ from catalog prices",
			"order_id", o.ID,
			"items_price", o.ItemsPrice.String(),
			"total_price", o.TotalPrice.String(),
		)
	}
}

func lineLabel(l OrderLineInput) string {
	if name := strings.TrimSpace(l.Name); name != "" {
		return name
	}
	return strconv.FormatUint(uint64(l.ProductID), 10)
}

// Get returns the order to its owner or to an admin.
func (s *OrderService) Get(ctx context.Context, actor auth.Identity, id uint) (*models.Order, error) {
	o, err := s.find(ctx, s.orders, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && o.UserID != actor.UserID {
		return nil, Unauthorized("Not authorized to view this order")
	}
	return o, nil
}

func (s *OrderService) ListMine(ctx context.Context, actor auth.Identity) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, actor.UserID)
}

func (s *OrderService) ListAll(ctx context.Context, p orm.Pagination) ([]models.Order, orm.Pagination, error) {
	return s.orders.ListAll(ctx, p)
}

// UpdateStatus moves an order through Processing → Shipped → Delivered, or
// to Cancelled from any state before Delivered. Cancelling restores stock.
// Asking for the current status changes nothing, but the owner is still
// told the order's status.
func (s *OrderService) UpdateStatus(ctx context.Context, actor auth.Identity, id uint, status string) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, Forbidden("Admin access required")
	}
	to, ok := models.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return nil, Validation("Invalid order status: %s", status)
	}

	var (
		order    *models.Order
		from     models.OrderStatus
		restored []events.StockUpdated
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders, products := s.orders.WithTx(tx), s.products.WithTx(tx)

		var err error
		if order, err = s.find(ctx, orders, id); err != nil {
			return err
		}
		from = order.Status
		if from == to {
			return nil
		}
		if !from.CanTransitionTo(to) {
			return Validation("Cannot change order status from %s to %s", from, to)
		}

		extra := map[string]any{}
		if to == models.StatusDelivered {
			extra["is_delivered"] = true
			extra["delivered_at"] = s.now()
		}
		ok, err := orders.TransitionStatus(ctx, id, from, to, extra)
		if err != nil {
			return err
		}
		if !ok {
			return Conflict("Order %d was modified concurrently; reload and retry", id)
		}

		if to == models.StatusCancelled {
			if restored, err = s.restock(ctx, products, actor, order.Items); err != nil {
				return err
			}
		}

		order, err = orders.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	for _, r := range restored {
		fire(ctx, s.events, events.StockUpdate, r)
	}
	fire(ctx, s.events, events.OrderStatusUpdated, events.OrderStatusChanged{
		OrderID:  order.ID,
		Status:   order.Status,
		Order:    order,
		Previous: from,
		OwnerID:  order.UserID,
	})
	return order, nil
}

// restock puts every line's quantity back. Products deleted since the order
// was placed are skipped.
func (s *OrderService) restock(ctx context.Context, products *repositories.ProductRepository, actor auth.Identity, items []models.OrderItem) ([]events.StockUpdated, error) {
	qty := make(map[uint]int)
	var ids []uint
	for _, it := range items {
		if _, seen := qty[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}

	for _, id := range ids {
		if err := products.IncrementStock(ctx, id, qty[id]); err != nil {
			return nil, err
		}
	}
	found, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]events.StockUpdated, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			continue
		}
		out = append(out, events.StockUpdated{
			ProductID:         id,
			ProductName:       p.Name,
			NewStock:          p.Stock,
			LowStockThreshold: p.LowStockThreshold,
			UpdatedBy:         events.Actor{IsAdmin: true, UserID: actor.UserID},
			At:                s.now(),
			Cause:             events.CauseCancel,
		})
	}
	return out, nil
}

// MarkPaid flags the order as paid once. Cancelled orders cannot be paid.
func (s *OrderService) MarkPaid(ctx context.Context, actor auth.Identity, id uint) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, Forbidden("Admin access required")
	}
	o, err := s.find(ctx, s.orders, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.StatusCancelled {
		return nil, Validation("Cannot mark a cancelled order as paid")
	}
	if o.IsPaid {
		return o, nil
	}
	if _, err := s.orders.MarkPaid(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.find(ctx, s.orders, id)
}

func (s *OrderService) find(ctx context.Context, repo *repositories.OrderRepository, id uint) (*models.Order, error) {
	o, err := repo.FindByID(ctx, id)
	if repositories.IsNotFound(err) {
		return nil, NotFound("Order not found")
	}
	return o, err
}
