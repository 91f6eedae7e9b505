package seeders

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
)

func init() {
	Register("catalog", SeedCatalog)
	Register("admin", SeedAdmin)
}

type demoProduct struct {
	name  string
	price string
	stock int
}

var demoCatalog = []struct {
	category string
	products []demoProduct
}{
	{"Apparel", []demoProduct{
		{"Classic Tee", "19.99", 40},
		{"Hooded Sweatshirt", "49.00", 12},
		{"Canvas Cap", "15.50", 6},
	}},
	{"Home", []demoProduct{
		{"Ceramic Mug", "12.00", 60},
		{"Desk Lamp", "34.90", 8},
	}},
	{"Accessories", []demoProduct{
		{"Leather Wallet", "39.00", 25},
		{"Tote Bag", "22.00", 3},
	}},
}

// SeedCatalog creates the demo categories and products. It does nothing
// when any category already exists.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&models.Category{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	catalog := services.NewCatalogService(db, nil, nil, nil)
	for _, group := range demoCatalog {
		cat, err := catalog.CreateCategory(ctx, services.CategoryInput{Name: group.category})
		if err != nil {
			return err
		}
		for _, p := range group.products {
			stock := p.stock
			_, err := catalog.CreateProduct(ctx, services.ProductInput{
				Name:       p.name,
				Price:      decimal.RequireFromString(p.price),
				CategoryID: cat.ID,
				Stock:      &stock,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
