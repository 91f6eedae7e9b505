// Package auth issues and verifies the signed bearer tokens that identify a
// caller, and hashes passwords.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/shashiranjanraj/storefront/config"
)

// Identity is the authenticated caller resolved from a token.
type Identity struct {
	UserID  uint
	IsAdmin bool
}

// Claims holds the typed JWT payload.
type Claims struct {
	UserID  uint `json:"userId"`
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Identity returns the caller identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, IsAdmin: c.IsAdmin}
}

var ErrInvalidToken = errors.New("auth: invalid token")

func secret() []byte {
	return []byte(config.JWTSecret())
}

// GenerateToken signs a token for id that expires after config.JWTTTL.
func GenerateToken(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  id.UserID,
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.JWTTTL())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

// ValidateToken parses t and returns its claims. Only HS256 is accepted.
func ValidateToken(t string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(t, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity placed by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
