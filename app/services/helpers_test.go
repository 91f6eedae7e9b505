package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/auth"
)

type fired struct {
	name    string
	payload any
}

// recorder captures fired events in order.
type recorder struct {
	mu     sync.Mutex
	events []fired
}

func (r *recorder) Fire(_ context.Context, name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fired{name, payload})
}

func (r *recorder) named(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e.payload)
		}
	}
	return out
}

func seedUser(t *testing.T, db *gorm.DB, email string, admin bool) *models.User {
	t.Helper()
	u := &models.User{FirstName: "Test", Email: email, Password: "x", IsAdmin: admin}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock, threshold int) *models.Product {
	t.Helper()
	cat := &models.Category{}
	if err := db.Where("name = ?", "General").First(cat).Error; err != nil {
		cat = seedCategory(t, db, "General")
	}
	p := &models.Product{
		Name:              name,
		Price:             decimal.RequireFromString(price),
		CategoryID:        cat.ID,
		Stock:             stock,
		LowStockThreshold: threshold,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p.Stock
}

func identity(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, IsAdmin: u.IsAdmin}
}

func line(p *models.Product, qty int) services.OrderLineInput {
	return services.OrderLineInput{ProductID: p.ID, Quantity: qty, Name: p.Name}
}

func orderInput(lines ...services.OrderLineInput) services.OrderInput {
	return services.OrderInput{
		Items:           lines,
		ShippingAddress: services.ShippingInput{Address: "1 Main St", Phone: "555-0100"},
		ShippingPrice:   decimal.RequireFromString("5"),
	}
}

func requireKind(t *testing.T, err error, kind services.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, services.KindOf(err), "error: %v", err)
	if msg != "" {
		require.Equal(t, msg, err.Error())
	}
}
