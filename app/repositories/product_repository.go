package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

// ProductFilter narrows List. Zero values match everything.
type ProductFilter struct {
	CategoryID uint
	Search     string
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository { return &ProductRepository{db: tx} }

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the products found, keyed by id.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Product, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, f ProductFilter, p orm.Pagination) ([]models.Product, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Category")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	products := []models.Product{}
	p, err := orm.Paginate(q, p, "created_at desc, id desc", &products)
	return products, p, err
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Save writes every catalog column except stock and the rating summary,
// which have their own atomic writers.
func (r *ProductRepository) Save(ctx context.Context, p *models.Product) error {
	return r.db.WithContext(ctx).Model(p).
		Select("name", "price", "category_id", "description", "image", "low_stock_threshold").
		Updates(p).Error
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Product{}, id).Error
}

// DecrementStock subtracts qty only if at least qty units remain. It reports
// whether the row was updated.
func (r *ProductRepository) DecrementStock(ctx context.Context, id uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *ProductRepository) IncrementStock(ctx context.Context, id uint, qty int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// SetStock overwrites stock; it reports whether the product exists.
func (r *ProductRepository) SetStock(ctx context.Context, id uint, stock int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", stock)
	return res.RowsAffected == 1, res.Error
}

// Stock reads the current stock of id.
func (r *ProductRepository) Stock(ctx context.Context, id uint) (int, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Select("id", "stock", "low_stock_threshold").First(&p, id).Error
	return p.Stock, err
}

// LowStock lists products at or below their threshold, lowest stock first.
func (r *ProductRepository) LowStock(ctx context.Context) ([]models.Product, error) {
	out := []models.Product{}
	err := r.db.WithContext(ctx).Preload("Category").
		Where("stock <= low_stock_threshold").
		Order("stock asc, id asc").
		Find(&out).Error
	return out, err
}

func (r *ProductRepository) Count(ctx context.Context) (total, low int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return
	}
	err = r.db.WithContext(ctx).Model(&models.Product{}).Where("stock <= low_stock_threshold").Count(&low).Error
	return
}

func (r *ProductRepository) UpdateRatingSummary(ctx context.Context, id uint, avg float64, count int, d models.RatingDistribution) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"average_rating": avg,
		"rating_count":   count,
		"rating_one":     d.One,
		"rating_two":     d.Two,
		"rating_three":   d.Three,
		"rating_four":    d.Four,
		"rating_five":    d.Five,
	}).Error
}

func (r *ProductRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
