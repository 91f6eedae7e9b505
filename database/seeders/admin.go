package seeders

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// SeedAdmin makes ADMIN_EMAIL an administrator, creating the account with
// ADMIN_PASSWORD when it does not exist yet.
func SeedAdmin(ctx context.Context, db *gorm.DB) error {
	users := services.NewUserService(repositories.NewUserRepository(db))
	email, password := config.AdminEmail(), config.AdminPassword()

	_, err := users.PromoteAdmin(ctx, email, password)
	if services.KindOf(err) == services.KindNotFound {
		logger.WithCtx(ctx).Warn("seeders: admin skipped, set ADMIN_PASSWORD to create it", "email", email)
		return nil
	}
	return err
}
