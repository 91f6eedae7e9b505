package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	err := r.db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) Save(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Delete removes the category only; its products keep their category id.
func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Category{}, id).Error
}
