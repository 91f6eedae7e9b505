package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/jobs"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/internal/testutil"
	"github.com/shashiranjanraj/storefront/pkg/notification"
	"github.com/shashiranjanraj/storefront/pkg/queue"
	"github.com/shashiranjanraj/storefront/pkg/schedule"
)

type captured struct {
	sent chan notification.Notification
}

func (c *captured) Send(_ context.Context, n notification.Notification) error {
	c.sent <- n
	return nil
}

func product(name string, stock, threshold int) *models.Product {
	return &models.Product{Name: name, Price: decimal.NewFromInt(5), CategoryID: 1, Stock: stock, LowStockThreshold: threshold}
}

func TestLowStockAlert_RunsThroughQueue(t *testing.T) {
	db := testutil.DB(t)
	p := product("Teapot", 2, 5)
	require.NoError(t, db.Create(p).Error)

	sink := &captured{sent: make(chan notification.Notification, 1)}
	m := queue.NewManager(queue.NewMemoryDriver(10))
	jobs.Register(m, jobs.NewDeps(db, sink))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Work(ctx, 1)

	require.NoError(t, m.Dispatch(ctx, jobs.NewLowStockAlert(p.ID)))

	select {
	case n := <-sink.sent:
		alert := n.(*jobs.LowStockAlert)
		assert.Equal(t, "Low stock: Teapot", alert.ToMail().Subject)
		assert.Contains(t, alert.ToSlack().Attachments[0].Text, "2 left (threshold 5)")
		assert.Equal(t, "low-stock", alert.ToWebhook().Event)
	case <-time.After(3 * time.Second):
		t.Fatal("alert was not sent")
	}
}

func TestLowStockAlert_SkipsRestockedProduct(t *testing.T) {
	db := testutil.DB(t)
	p := product("Jug", 50, 5)
	require.NoError(t, db.Create(p).Error)

	sink := &captured{sent: make(chan notification.Notification, 1)}
	m := queue.NewManager(queue.NewMemoryDriver(10))
	jobs.Register(m, jobs.NewDeps(db, sink))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Work(ctx, 1)
	require.NoError(t, m.Dispatch(ctx, jobs.NewLowStockAlert(p.ID)))
	require.NoError(t, m.Dispatch(ctx, jobs.NewLowStockAlert(9999)))

	select {
	case <-sink.sent:
		t.Fatal("restocked or missing products must not alert")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Empty(t, m.FailedJobs())
}

func TestLowStockDigest_Scheduled(t *testing.T) {
	db := testutil.DB(t)
	require.NoError(t, db.Create(product("Cup", 1, 5)).Error)
	require.NoError(t, db.Create(product("Bowl", 0, 3)).Error)
	require.NoError(t, db.Create(product("Plate", 40, 3)).Error)

	sink := &captured{sent: make(chan notification.Notification, 1)}
	m := queue.NewManager(queue.NewMemoryDriver(10))
	jobs.Register(m, jobs.NewDeps(db, sink))

	s := schedule.New()
	jobs.Schedule(s, m, time.Hour)
	assert.Equal(t, []string{"low-stock-digest  [every 1h0m0s]"}, s.List())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Work(ctx, 1)

	require.Equal(t, 1, s.Tick(ctx, time.Now()))
	s.Wait()

	select {
	case n := <-sink.sent:
		digest := n.(*jobs.LowStockDigest)
		assert.Equal(t, "2 products low on stock", digest.ToMail().Subject)
		assert.Contains(t, digest.ToMail().Body, "<li>Bowl: 0 left (threshold 3)</li>")
		assert.NotContains(t, digest.ToMail().Body, "Plate")
	case <-time.After(3 * time.Second):
		t.Fatal("digest was not sent")
	}
}
