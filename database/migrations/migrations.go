// Package migrations lists the storefront schema migrations in order.
package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/migration"
	"github.com/shashiranjanraj/storefront/pkg/queue"
)

// All returns every migration, oldest first.
func All() []migration.Entry {
	return []migration.Entry{
		{Name: "20260101000000_create_users_table", Migration: tables{&models.User{}}},
		{Name: "20260101000001_create_catalog_tables", Migration: tables{&models.Category{}, &models.Product{}}},
		{Name: "20260101000002_create_orders_tables", Migration: tables{&models.Order{}, &models.OrderItem{}}},
		{Name: "20260101000003_create_review_tables", Migration: tables{&models.ProductRating{}, &models.ProductComment{}, &models.CommentReply{}}},
		{Name: "20260101000004_create_failed_jobs_table", Migration: tables{&queue.FailedJobRecord{}}},
	}
}

// tables creates its models on Up and drops them in reverse on Down.
type tables []any

func (t tables) Up(tx *gorm.DB) error {
	return tx.AutoMigrate(t...)
}

func (t tables) Down(tx *gorm.DB) error {
	for i := len(t) - 1; i >= 0; i-- {
		if err := tx.Migrator().DropTable(t[i]); err != nil {
			return err
		}
	}
	return nil
}
