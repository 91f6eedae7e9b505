package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/events"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testutil"
)

func TestCreateOrder_DecrementsStockAndAnnounces(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewOrderService(db, rec)
	buyer := seedUser(t, db, "buyer@example.com", false)
	mug := seedProduct(t, db, "Mug", "12.50", 10, 3)
	tee := seedProduct(t, db, "Tee", "20", 4, 2)

	order, err := svc.Create(context.Background(), identity(buyer), orderInput(line(mug, 2), line(tee, 3), line(mug, 1)))
	require.NoError(t, err)

	assert.Equal(t, 7, stockOf(t, db, mug.ID))
	assert.Equal(t, 1, stockOf(t, db, tee.ID))

	assert.Equal(t, models.StatusProcessing, order.Status)
	assert.Equal(t, buyer.ID, order.UserID)
	assert.False(t, order.IsDelivered)
	assert.Len(t, order.Items, 3)
	assert.True(t, decimal.RequireFromString("97.5").Equal(order.ItemsPrice), order.ItemsPrice.String())
	assert.True(t, decimal.RequireFromString("102.5").Equal(order.TotalPrice), order.TotalPrice.String())
	assert.Regexp(t, `^\d{14}-[0-9a-f-]{36}$`, order.Reference)

	updates := rec.named(events.StockUpdate)
	require.Len(t, updates, 2)
	first := updates[0].(events.StockUpdated)
	assert.Equal(t, mug.ID, first.ProductID)
	assert.Equal(t, 7, first.NewStock)
	assert.Equal(t, events.Actor{IsAdmin: false, UserID: buyer.ID}, first.UpdatedBy)
	assert.Len(t, rec.named(events.OrderPlaced), 1)
}

func TestCreateOrder_SumOfDecrementsMatchesQuantities(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "sum@example.com", false)
	p := seedProduct(t, db, "Cap", "9", 50, 5)

	ordered := 0
	for _, q := range []int{1, 4, 7, 2} {
		_, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, q)))
		require.NoError(t, err)
		ordered += q
	}
	assert.Equal(t, 50-ordered, stockOf(t, db, p.ID))
}

func TestCreateOrder_InsufficientStockLeavesNothingBehind(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewOrderService(db, rec)
	buyer := seedUser(t, db, "short@example.com", false)
	ok := seedProduct(t, db, "Plenty", "1", 100, 5)
	scarce := seedProduct(t, db, "Scarce", "1", 2, 5)

	_, err := svc.Create(context.Background(), identity(buyer), orderInput(line(ok, 1), line(scarce, 3)))
	requireKind(t, err, services.KindValidation, "Insufficient stock for Scarce. Only 2 available.")

	assert.Equal(t, 2, stockOf(t, db, scarce.ID))
	assert.Equal(t, 100, stockOf(t, db, ok.ID))
	var n int64
	require.NoError(t, db.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, rec.events)
}

func TestCreateOrder_DrainsToZeroThenRefuses(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewOrderService(db, rec)
	buyer := seedUser(t, db, "drain@example.com", false)
	p := seedProduct(t, db, "Lamp", "30", 5, 10)

	_, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, 5)))
	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, db, p.ID))

	updates := rec.named(events.StockUpdate)
	require.Len(t, updates, 1)
	ev := updates[0].(events.StockUpdated)
	assert.Equal(t, 0, ev.NewStock)
	assert.Equal(t, 10, ev.LowStockThreshold)
	assert.True(t, ev.LowStock())

	_, err = svc.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
	requireKind(t, err, services.KindValidation, "Insufficient stock for Lamp. Only 0 available.")
}

func TestCreateOrder_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "rush@example.com", false)
	p := seedProduct(t, db, "Kettle", "40", 3, 1)

	const shoppers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		refused int
	)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				placed++
				return
			}
			if services.KindOf(err) == services.KindValidation {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, placed)
	assert.Equal(t, shoppers-3, refused)
	assert.Equal(t, 0, stockOf(t, db, p.ID))

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 3, orders)
}

func TestCreateOrder_RejectsBadInput(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "bad@example.com", false)
	p := seedProduct(t, db, "Pen", "1", 5, 1)

	_, err := svc.Create(context.Background(), identity(buyer), orderInput())
	requireKind(t, err, services.KindValidation, "No order items")

	_, err = svc.Create(context.Background(), identity(buyer), orderInput(line(p, 0)))
	requireKind(t, err, services.KindValidation, "Invalid quantity for Pen")

	missing := services.OrderLineInput{ProductID: 999, Quantity: 1, Name: "Ghost"}
	_, err = svc.Create(context.Background(), identity(buyer), orderInput(missing))
	requireKind(t, err, services.KindNotFound, "Product not found: Ghost")

	missing.Name = ""
	_, err = svc.Create(context.Background(), identity(buyer), orderInput(missing))
	requireKind(t, err, services.KindNotFound, "Product not found: 999")
}

func TestCreateOrder_SnapshotsCatalogPrice(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "snap@example.com", false)
	p := seedProduct(t, db, "Book", "15.00", 5, 1)

	in := orderInput(line(p, 2))
	cheap := decimal.RequireFromString("0.01")
	in.Items[0].Price = &cheap
	in.Items[0].Name = "Something else"

	order, err := svc.Create(context.Background(), identity(buyer), in)
	require.NoError(t, err)
	assert.Equal(t, "Book", order.Items[0].Name)
	assert.True(t, decimal.RequireFromString("15").Equal(order.Items[0].Price))
	assert.True(t, decimal.RequireFromString("35").Equal(order.TotalPrice))
}

func TestGetOrder_OwnerOrAdminOnly(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	alice := seedUser(t, db, "alice@example.com", false)
	bob := seedUser(t, db, "bob@example.com", false)
	admin := seedUser(t, db, "root@example.com", true)
	p := seedProduct(t, db, "Kite", "8", 5, 1)

	order, err := svc.Create(context.Background(), identity(alice), orderInput(line(p, 1)))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), identity(bob), order.ID)
	requireKind(t, err, services.KindUnauthorized, "")

	got, err := svc.Get(context.Background(), identity(alice), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = svc.Get(context.Background(), identity(admin), order.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), identity(alice), 9999)
	requireKind(t, err, services.KindNotFound, "Order not found")
}

func TestListMine_NewestFirst(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	alice := seedUser(t, db, "list@example.com", false)
	bob := seedUser(t, db, "other@example.com", false)
	p := seedProduct(t, db, "Sock", "2", 20, 1)

	first, err := svc.Create(context.Background(), identity(alice), orderInput(line(p, 1)))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), identity(alice), orderInput(line(p, 1)))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), identity(bob), orderInput(line(p, 1)))
	require.NoError(t, err)

	mine, err := svc.ListMine(context.Background(), identity(alice))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
}

func TestUpdateStatus_CancelRestoresStockOnce(t *testing.T) {
	db := testutil.DB(t)
	rec := &recorder{}
	svc := services.NewOrderService(db, rec)
	buyer := seedUser(t, db, "cancel@example.com", false)
	admin := seedUser(t, db, "admin@example.com", true)
	a := seedProduct(t, db, "A", "1", 10, 1)
	b := seedProduct(t, db, "B", "1", 10, 1)

	order, err := svc.Create(context.Background(), identity(buyer), orderInput(line(a, 2), line(b, 3)))
	require.NoError(t, err)
	require.Equal(t, 8, stockOf(t, db, a.ID))
	require.Equal(t, 7, stockOf(t, db, b.ID))
	rec.events = nil

	got, err := svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, 10, stockOf(t, db, a.ID))
	assert.Equal(t, 10, stockOf(t, db, b.ID))

	updates := rec.named(events.StockUpdate)
	require.Len(t, updates, 2)
	for _, u := range updates {
		assert.Equal(t, events.Actor{IsAdmin: true, UserID: admin.ID}, u.(events.StockUpdated).UpdatedBy)
	}
	statusEvents := rec.named(events.OrderStatusUpdated)
	require.Len(t, statusEvents, 1)
	ev := statusEvents[0].(events.OrderStatusChanged)
	assert.Equal(t, buyer.ID, ev.OwnerID)
	assert.Equal(t, models.StatusCancelled, ev.Status)

	rec.events = nil
	again, err := svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, again.Status)
	assert.Equal(t, 10, stockOf(t, db, a.ID))
	assert.Empty(t, rec.named(events.StockUpdate))
	repeated := rec.named(events.OrderStatusUpdated)
	require.Len(t, repeated, 1)
	assert.Equal(t, models.StatusCancelled, repeated[0].(events.OrderStatusChanged).Previous)
	assert.Equal(t, models.StatusCancelled, repeated[0].(events.OrderStatusChanged).Status)
}

func TestUpdateStatus_DeliveredStampsOnce(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "deliver@example.com", false)
	admin := seedUser(t, db, "ops@example.com", true)
	p := seedProduct(t, db, "Box", "3", 5, 1)

	order, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
	require.NoError(t, err)

	shipped, err := svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Shipped")
	require.NoError(t, err)
	assert.False(t, shipped.IsDelivered)
	assert.Nil(t, shipped.DeliveredAt)

	delivered, err := svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Delivered")
	require.NoError(t, err)
	require.True(t, delivered.IsDelivered)
	require.NotNil(t, delivered.DeliveredAt)
	stamp := *delivered.DeliveredAt

	time.Sleep(10 * time.Millisecond)
	same, err := svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Delivered")
	require.NoError(t, err)
	assert.True(t, stamp.Equal(*same.DeliveredAt))

	_, err = svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Cancelled")
	requireKind(t, err, services.KindValidation, "Cannot change order status from Delivered to Cancelled")
	assert.Equal(t, 4, stockOf(t, db, p.ID))
}

func TestUpdateStatus_RejectsInvalidAndBackward(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "back@example.com", false)
	admin := seedUser(t, db, "boss@example.com", true)
	p := seedProduct(t, db, "Bag", "3", 5, 1)

	order, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Refunded")
	requireKind(t, err, services.KindValidation, "Invalid order status: Refunded")

	_, err = svc.UpdateStatus(context.Background(), identity(buyer), order.ID, "Shipped")
	requireKind(t, err, services.KindForbidden, "")

	_, err = svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Shipped")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), identity(admin), order.ID, "Processing")
	requireKind(t, err, services.KindValidation, "Cannot change order status from Shipped to Processing")
}

func TestMarkPaid(t *testing.T) {
	db := testutil.DB(t)
	svc := services.NewOrderService(db, nil)
	buyer := seedUser(t, db, "pay@example.com", false)
	admin := seedUser(t, db, "cashier@example.com", true)
	p := seedProduct(t, db, "Hat", "3", 5, 1)

	order, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), identity(admin), order.ID)
	require.NoError(t, err)
	require.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)

	again, err := svc.MarkPaid(context.Background(), identity(admin), order.ID)
	require.NoError(t, err)
	assert.True(t, paid.PaidAt.Equal(*again.PaidAt))

	other, err := svc.Create(context.Background(), identity(buyer), orderInput(line(p, 1)))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), identity(admin), other.ID, "Cancelled")
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), identity(admin), other.ID)
	requireKind(t, err, services.KindValidation, "Cannot mark a cancelled order as paid")
}

func TestNewReference(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	ref := services.NewReference(at)
	assert.True(t, strings.HasPrefix(ref, "20260304050607-"), ref)
	assert.NotEqual(t, ref, services.NewReference(at))
}
