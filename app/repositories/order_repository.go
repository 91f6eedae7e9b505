package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository { return &OrderRepository{db: tx} }

// Create inserts the order with its items.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	out := []models.Order{}
	err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

func (r *OrderRepository) ListAll(ctx context.Context, p orm.Pagination) ([]models.Order, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "first_name", "last_name", "username", "email") })

	out := []models.Order{}
	p, err := orm.Paginate(q, p, "created_at desc, id desc", &out)
	return out, p, err
}

// TransitionStatus moves the order from one status to another only if it is
// still in from, writing extra columns alongside. It reports whether the row
// changed.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id uint, from, to models.OrderStatus, extra map[string]any) (bool, error) {
	cols := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range extra {
		cols[k] = v
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(cols)
	return res.RowsAffected == 1, res.Error
}

// MarkPaid sets isPaid once for an order that is not cancelled.
func (r *OrderRepository) MarkPaid(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ? AND status <> ?", id, false, models.StatusCancelled).
		UpdateColumns(map[string]any{"is_paid": true, "paid_at": at, "updated_at": at})
	return res.RowsAffected == 1, res.Error
}

// HasDeliveredOrderWith reports whether the user has a delivered order
// containing the product.
func (r *OrderRepository) HasDeliveredOrderWith(ctx context.Context, userID, productID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, models.StatusDelivered, productID).
		Count(&n).Error
	return n > 0, err
}

// StatsRow is the slice of an order the dashboard aggregates.
type StatsRow struct {
	Status     models.OrderStatus
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// StatsRows returns every order's status, total and creation time.
func (r *OrderRepository) StatsRows(ctx context.Context) ([]StatsRow, error) {
	var rows []StatsRow
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("status", "total_price", "created_at").
		Scan(&rows).Error
	return rows, err
}
