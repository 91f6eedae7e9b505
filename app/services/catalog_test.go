package services_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/events"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testutil"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

func intp(n int) *int { return &n }

func TestCategories(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewCatalogService(db, nil, nil, nil)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, services.CategoryInput{Name: "Home Decor"})
	require.NoError(t, err)
	assert.Equal(t, "home-decor", c.Slug)

	_, err = svc.CreateCategory(ctx, services.CategoryInput{Name: "Home Decor"})
	requireKind(t, err, services.KindConflict, "Category already exists")

	got, err := svc.CategoryBySlug(ctx, "home-decor")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	updated, err := svc.UpdateCategory(ctx, c.ID, services.CategoryInput{Name: "Decor", Slug: "decor"})
	require.NoError(t, err)
	assert.Equal(t, "decor", updated.Slug)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	_, err = svc.CategoryBySlug(ctx, "decor")
	requireKind(t, err, services.KindNotFound, "Category not found")
	requireKind(t, svc.DeleteCategory(ctx, c.ID), services.KindNotFound, "")
}

func TestProducts_CreateListFilter(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewCatalogService(db, nil, nil, rec)
	ctx := context.Background()

	kitchen, err := svc.CreateCategory(ctx, services.CategoryInput{Name: "Kitchen"})
	require.NoError(t, err)
	garden, err := svc.CreateCategory(ctx, services.CategoryInput{Name: "Garden"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, services.ProductInput{Name: "Kettle", Price: decimal.RequireFromString("35"), CategoryID: 999})
	requireKind(t, err, services.KindValidation, "Category not found")

	kettle, err := svc.CreateProduct(ctx, services.ProductInput{
		Name: "Kettle", Price: decimal.RequireFromString("35"), CategoryID: kitchen.ID, Description: "Steel kettle",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, kettle.Stock)
	assert.Equal(t, 10, kettle.LowStockThreshold)
	assert.True(t, kettle.LowStock)
	require.NotNil(t, kettle.Category)
	assert.Equal(t, "Kitchen", kettle.Category.Name)

	_, err = svc.CreateProduct(ctx, services.ProductInput{
		Name: "Hose", Price: decimal.RequireFromString("20"), CategoryID: garden.ID, Stock: intp(40), LowStockThreshold: intp(5),
	})
	require.NoError(t, err)
	assert.Len(t, rec.named(events.ProductChanged), 2)

	page, err := svc.Products(ctx, services.ProductQuery{Category: "kitchen"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Kettle", page.Products[0].Name)

	page, err = svc.Products(ctx, services.ProductQuery{Search: "HOSE"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.False(t, page.Products[0].LowStock)

	page, err = svc.Products(ctx, services.ProductQuery{Category: "no-such-category"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)

	page, err = svc.Products(ctx, services.ProductQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Products, 1)
	assert.EqualValues(t, 2, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Pages)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, kettle.ID, low[0].ID)

	total, lowCount, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, lowCount)
}

func TestProducts_UpdateAndDelete(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewCatalogService(db, nil, nil, rec)
	ctx := context.Background()
	admin := auth.Identity{UserID: 1, IsAdmin: true}
	p := seedProduct(t, db, "Vase", "10", 3, 2)

	updated, err := svc.UpdateProduct(ctx, admin, p.ID, services.ProductInput{
		Name: "Tall Vase", Price: decimal.RequireFromString("12.75"), CategoryID: p.CategoryID, Stock: intp(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "Tall Vase", updated.Name)
	assert.True(t, decimal.RequireFromString("12.75").Equal(updated.Price))
	assert.Empty(t, rec.named(events.StockUpdate), "unchanged stock is not announced")

	updated, err = svc.UpdateProduct(ctx, admin, p.ID, services.ProductInput{
		Name: "Tall Vase", Price: decimal.RequireFromString("12.75"), CategoryID: p.CategoryID, Stock: intp(9),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Stock)
	require.Len(t, rec.named(events.StockUpdate), 1)

	found, err := svc.FindProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tall Vase", found.Name)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	_, err = svc.FindProductByID(ctx, p.ID)
	requireKind(t, err, services.KindNotFound, "Product not found")
	requireKind(t, svc.DeleteProduct(ctx, p.ID), services.KindNotFound, "")
}

func TestSetStock_AnnouncesAdminChange(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewCatalogService(db, nil, nil, rec)
	ctx := context.Background()
	p := seedProduct(t, db, "Clock", "25", 1, 4)
	admin := auth.Identity{UserID: 7, IsAdmin: true}

	got, err := svc.SetStock(ctx, admin, p.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Stock)
	assert.False(t, got.LowStock)

	updates := rec.named(events.StockUpdate)
	require.Len(t, updates, 1)
	ev := updates[0].(events.StockUpdated)
	assert.Equal(t, 12, ev.NewStock)
	assert.Equal(t, events.Actor{IsAdmin: true, UserID: 7}, ev.UpdatedBy)
	assert.Equal(t, events.CauseAdmin, ev.Cause)
	require.False(t, ev.At.IsZero())

	_, err = svc.SetStock(ctx, admin, p.ID, 3)
	require.NoError(t, err)
	updates = rec.named(events.StockUpdate)
	require.Len(t, updates, 2)
	later := updates[1].(events.StockUpdated)
	assert.Equal(t, 3, later.NewStock)
	assert.False(t, later.At.Before(ev.At))

	_, err = svc.SetStock(ctx, admin, p.ID, -1)
	requireKind(t, err, services.KindValidation, "")
	_, err = svc.SetStock(ctx, admin, 999, 1)
	requireKind(t, err, services.KindNotFound, "")
}

func TestUploadImage(t *testing.T) {
	db := testutil.DB(t)
	disk := storage.NewLocal(t.TempDir(), "/storage")
	svc := services.NewCatalogService(db, nil, disk, nil)
	ctx := context.Background()
	p := seedProduct(t, db, "Frame", "15", 3, 1)

	_, err := svc.UploadImage(ctx, p.ID, "notes.txt", "text/plain", strings.NewReader("hi"))
	requireKind(t, err, services.KindValidation, "")

	got, err := svc.UploadImage(ctx, p.ID, "Frame.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got.Image, "/storage/products/"), got.Image)

	key := strings.TrimPrefix(got.Image, "/storage/")
	rc, err := disk.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "png-bytes", string(body))

	_, err = svc.UploadImage(ctx, 999, "x.png", "image/png", strings.NewReader("x"))
	requireKind(t, err, services.KindNotFound, "")
}
