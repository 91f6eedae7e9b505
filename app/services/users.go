package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

// UserUpdateInput is the admin edit form. IsAdmin is the only way to promote
// or demote over HTTP.
type UserUpdateInput struct {
	ProfileInput
	IsAdmin *bool `json:"isAdmin"`
}

// UserService is the admin view of accounts.
type UserService struct {
	users   *repositories.UserRepository
	profile *AuthService
}

func NewUserService(users *repositories.UserRepository) *UserService {
	return &UserService{users: users, profile: NewAuthService(users)}
}

func (s *UserService) List(ctx context.Context, p orm.Pagination) ([]models.User, orm.Pagination, error) {
	return s.users.List(ctx, p)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.profile.Me(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id uint, in UserUpdateInput) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.profile.applyProfile(ctx, u, in.ProfileInput); err != nil {
		return nil, err
	}
	if in.IsAdmin != nil {
		u.IsAdmin = *in.IsAdmin
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict("Email is already taken")
		}
		return nil, err
	}
	return u, nil
}

// Delete removes the account permanently. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor auth.Identity, id uint) error {
	if actor.UserID == id {
		return Validation("You cannot delete your own account")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

// PromoteAdmin grants the admin flag to the account with email, creating it
// with password when it does not exist and password is not empty.
func (s *UserService) PromoteAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsAdmin {
			return u, nil
		}
		u.IsAdmin = true
		return u, s.users.Save(ctx, u)

	case !repositories.IsNotFound(err):
		return nil, err

	case password == "":
		return nil, NotFound("User not found: %s", email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u = &models.User{FirstName: "Admin", Username: "admin", Email: email, Password: hash, IsAdmin: true}
	return u, s.users.Create(ctx, u)
}
