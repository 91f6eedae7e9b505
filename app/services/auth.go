package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

type RegisterInput struct {
	FirstName string `json:"firstName" validate:"nullable,max=100"`
	LastName  string `json:"lastName" validate:"nullable,max=100"`
	Username  string `json:"username" validate:"nullable,alpha_dash,min=3,max=30"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Address   string `json:"address" validate:"nullable,max=255"`
	Phone     string `json:"phone" validate:"nullable,max=50"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial update; nil fields are left alone.
type ProfileInput struct {
	FirstName *string `json:"firstName" validate:"nullable,max=100"`
	LastName  *string `json:"lastName" validate:"nullable,max=100"`
	Username  *string `json:"username" validate:"nullable,alpha_dash,min=3,max=30"`
	Email     *string `json:"email" validate:"nullable,email,max=255"`
	Password  *string `json:"password" validate:"nullable,min=6,max=72"`
	Address   *string `json:"address" validate:"nullable,max=255"`
	Phone     *string `json:"phone" validate:"nullable,max=50"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Register creates a shopper account. New accounts are never admins.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, Conflict("User already exists")
	} else if !repositories.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Username:  strings.TrimSpace(in.Username),
		Email:     email,
		Password:  hash,
		Address:   in.Address,
		Phone:     in.Phone,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict("User already exists")
		}
		return nil, err
	}
	return s.session(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, Unauthorized("Invalid email or password")
	}
	return s.session(u)
}

func (s *AuthService) Me(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if repositories.IsNotFound(err) {
		return nil, NotFound("User not found")
	}
	return u, err
}

// UpdateProfile edits the caller's own account. The admin flag is not
// reachable from here.
func (s *AuthService) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error) {
	u, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(ctx, u, in); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict("Email is already taken")
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) applyProfile(ctx context.Context, u *models.User, in ProfileInput) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.FirstName, in.FirstName)
	set(&u.LastName, in.LastName)
	set(&u.Username, in.Username)
	set(&u.Address, in.Address)
	set(&u.Phone, in.Phone)

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != u.Email {
			other, err := s.users.FindByEmail(ctx, email)
			switch {
			case err == nil && other.ID != u.ID:
				return Conflict("Email is already taken")
			case err != nil && !repositories.IsNotFound(err):
				return err
			}
			u.Email = email
		}
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return err
		}
		u.Password = hash
	}
	return nil
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, err := auth.GenerateToken(auth.Identity{UserID: u.ID, IsAdmin: u.IsAdmin})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
