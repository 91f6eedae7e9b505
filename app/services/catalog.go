package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/events"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/orm"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"nullable,alpha_dash,max=120"`
	Image       string `json:"image" validate:"nullable,max=500"`
	Description string `json:"description" validate:"nullable,max=2000"`
}

type ProductInput struct {
	Name              string          `json:"name" validate:"required,max=120"`
	Price             decimal.Decimal `json:"price" validate:"gte=0"`
	CategoryID        uint            `json:"categoryId" validate:"required"`
	Description       string          `json:"description" validate:"nullable,max=5000"`
	Image             string          `json:"image" validate:"nullable,max=500"`
	Stock             *int            `json:"stock" validate:"nullable,gte=0"`
	LowStockThreshold *int            `json:"lowStockThreshold" validate:"nullable,gte=0"`
}

type StockInput struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// ProductQuery filters the public listing. Category is an id or a slug.
type ProductQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

type ProductPage struct {
	Products   []models.Product `json:"products"`
	Pagination orm.Pagination   `json:"pagination"`
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// CatalogService owns categories and products. Single product reads go
// through the cache; every write here invalidates it.
type CatalogService struct {
	categories *repositories.CategoryRepository
	products   *repositories.ProductRepository
	cache      *cache.Store
	disk       storage.Disk
	events     events.Dispatcher
}

// NewCatalogService wires the catalog. store and disk may be nil.
func NewCatalogService(db *gorm.DB, store *cache.Store, disk storage.Disk, d events.Dispatcher) *CatalogService {
	return &CatalogService{
		categories: repositories.NewCategoryRepository(db),
		products:   repositories.NewProductRepository(db),
		cache:      store,
		disk:       disk,
		events:     d,
	}
}

// ProductCacheKey is the cache key of a single product.
func ProductCacheKey(id uint) string { return "product:" + strconv.FormatUint(uint64(id), 10) }

// ── categories ───────────────────────────────────────────────────────────────

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CatalogService) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.categories.FindBySlug(ctx, models.Slugify(slug))
	if repositories.IsNotFound(err) {
		return nil, NotFound("Category not found")
	}
	return c, err
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{Name: in.Name, Slug: in.Slug, Image: in.Image, Description: in.Description}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, categoryWriteError(err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NotFound("Category not found")
		}
		return nil, err
	}
	c.Name, c.Slug, c.Image, c.Description = in.Name, in.Slug, in.Image, in.Description
	if err := s.categories.Save(ctx, c); err != nil {
		return nil, categoryWriteError(err)
	}
	return c, nil
}

// DeleteCategory leaves the category's products in place.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if repositories.IsNotFound(err) {
			return NotFound("Category not found")
		}
		return err
	}
	return s.categories.Delete(ctx, id)
}

func categoryWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict("Category already exists")
	}
	return err
}

// ── products ─────────────────────────────────────────────────────────────────

func (s *CatalogService) Products(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	f := repositories.ProductFilter{Search: q.Search}
	if q.Category != "" {
		id, err := s.resolveCategory(ctx, q.Category)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			p := orm.NewPagination(q.Page, q.Limit)
			return &ProductPage{Products: []models.Product{}, Pagination: p}, nil
		}
		f.CategoryID = id
	}

	products, p, err := s.products.List(ctx, f, orm.NewPagination(q.Page, q.Limit))
	if err != nil {
		return nil, err
	}
	return &ProductPage{Products: products, Pagination: p}, nil
}

// resolveCategory returns 0 for an unknown slug.
func (s *CatalogService) resolveCategory(ctx context.Context, ref string) (uint, error) {
	if n, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return uint(n), nil
	}
	c, err := s.categories.FindBySlug(ctx, models.Slugify(ref))
	if repositories.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// FindProductByID returns the product, served from the cache when possible.
func (s *CatalogService) FindProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.cache.Remember(ctx, ProductCacheKey(id), config.CacheTTL(), &p, func() error {
		found, err := s.products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		p = *found
		return nil
	})
	if repositories.IsNotFound(err) {
		return nil, NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	p.LowStock = p.Stock <= p.LowStockThreshold
	return &p, nil
}

// SaveProduct persists the catalog columns of p. Stock is never written here.
func (s *CatalogService) SaveProduct(ctx context.Context, p *models.Product) error {
	if err := s.products.Save(ctx, p); err != nil {
		return err
	}
	s.changed(ctx, p.ID, false)
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:              strings.TrimSpace(in.Name),
		Price:             in.Price,
		CategoryID:        in.CategoryID,
		Description:       in.Description,
		Image:             in.Image,
		LowStockThreshold: config.LowStockThreshold(),
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.changed(ctx, p.ID, false)
	return s.products.FindByID(ctx, p.ID)
}

// UpdateProduct rewrites the catalog columns. A stock value in the form is
// applied like an admin stock edit and announced.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor auth.Identity, id uint, in ProductInput) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NotFound("Product not found")
		}
		return nil, err
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Price = in.Price
	p.CategoryID = in.CategoryID
	p.Description = in.Description
	p.Image = in.Image
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if err := s.SaveProduct(ctx, p); err != nil {
		return nil, err
	}

	if in.Stock != nil && *in.Stock != p.Stock {
		return s.SetStock(ctx, actor, id, *in.Stock)
	}
	return s.products.FindByID(ctx, id)
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	ok, err := s.products.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NotFound("Product not found")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id, true)
	return nil
}

// SetStock overwrites a product's stock and announces the new level.
func (s *CatalogService) SetStock(ctx context.Context, actor auth.Identity, id uint, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, Validation("Stock cannot be negative")
	}
	ok, err := s.products.SetStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NotFound("Product not found")
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Del(ctx, ProductCacheKey(id))
	fire(ctx, s.events, events.StockUpdate, events.StockUpdated{
		ProductID:         p.ID,
		ProductName:       p.Name,
		NewStock:          p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		UpdatedBy:         events.Actor{IsAdmin: actor.IsAdmin, UserID: actor.UserID},
		At:                time.Now(),
		Cause:             events.CauseAdmin,
	})
	return p, nil
}

func (s *CatalogService) LowStock(ctx context.Context) ([]models.Product, error) {
	return s.products.LowStock(ctx)
}

// UploadImage stores an image on the configured disk and points the product
// at it.
func (s *CatalogService) UploadImage(ctx context.Context, id uint, filename, contentType string, r io.Reader) (*models.Product, error) {
	if s.disk == nil {
		return nil, errors.New("catalog: no storage disk configured")
	}
	ext := strings.ToLower(path.Ext(filename))
	if !imageExtensions[ext] || !strings.HasPrefix(contentType, "image/") {
		return nil, Validation("Only jpg, png, webp or gif images are accepted")
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, NotFound("Product not found")
		}
		return nil, err
	}

	key := fmt.Sprintf("products/%d/%s%s", id, uuid.NewString(), ext)
	if err := s.disk.Put(ctx, key, r, contentType); err != nil {
		return nil, fmt.Errorf("catalog: store image: %w", err)
	}

	old := p.Image
	p.Image = s.disk.URL(key)
	if err := s.SaveProduct(ctx, p); err != nil {
		_ = s.disk.Delete(ctx, key)
		return nil, err
	}
	logger.WithCtx(ctx).Info("catalog: product image replaced", "product_id", id, "key", key, "previous", old)
	return p, nil
}

func (s *CatalogService) requireCategory(ctx context.Context, id uint) error {
	_, err := s.categories.FindByID(ctx, id)
	if repositories.IsNotFound(err) {
		return Validation("Category not found")
	}
	return err
}

func (s *CatalogService) changed(ctx context.Context, id uint, deleted bool) {
	_ = s.cache.Del(ctx, ProductCacheKey(id))
	fire(ctx, s.events, events.ProductChanged, events.ProductChangedEvent{ProductID: id, Deleted: deleted})
}

// Counts returns the number of products and how many are low on stock.
func (s *CatalogService) Counts(ctx context.Context) (total, low int64, err error) {
	return s.products.Count(ctx)
}
