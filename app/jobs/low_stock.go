// Package jobs holds the storefront's queued jobs and their schedule.
package jobs

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/notification"
	"github.com/shashiranjanraj/storefront/pkg/queue"
	"github.com/shashiranjanraj/storefront/pkg/schedule"
)

// Sender is satisfied by *notification.Notifier.
type Sender interface {
	Send(ctx context.Context, n notification.Notification) error
}

// Deps are injected into jobs by their factories; they are not serialised.
type Deps struct {
	Products *repositories.ProductRepository
	Notifier Sender
}

func NewDeps(db *gorm.DB, n Sender) *Deps {
	return &Deps{Products: repositories.NewProductRepository(db), Notifier: n}
}

// Register makes every job type runnable by m's workers.
func Register(m *queue.Manager, d *Deps) {
	m.Register(func() queue.Job { return &LowStockAlert{deps: d} })
	m.Register(func() queue.Job { return &LowStockDigest{deps: d} })
}

// Schedule queues the low-stock digest every interval.
func Schedule(s *schedule.Scheduler, m *queue.Manager, interval time.Duration) {
	s.Every(interval).Name("low-stock-digest").WithoutOverlapping().Run(func(ctx context.Context) {
		if err := m.Dispatch(ctx, &LowStockDigest{}); err != nil {
			logger.WithCtx(ctx).Error("jobs: queue low-stock digest", "error", err)
		}
	})
}

// LowStockAlert tells operators that one product dropped to or below its
// threshold. It re-reads the product and stays quiet if it was restocked
// in the meantime.
type LowStockAlert struct {
	ProductID uint `json:"productId"`

	deps    *Deps
	product *models.Product
}

func NewLowStockAlert(productID uint) *LowStockAlert {
	return &LowStockAlert{ProductID: productID}
}

func (j *LowStockAlert) Handle(ctx context.Context) error {
	p, err := j.deps.Products.FindByID(ctx, j.ProductID)
	if repositories.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !p.LowStock {
		return nil
	}
	j.product = p
	return j.deps.Notifier.Send(ctx, j)
}

func (j *LowStockAlert) Via() []string {
	return []string{notification.Webhook, notification.Slack, notification.Mail}
}

func (j *LowStockAlert) summary() string {
	return fmt.Sprintf("%s is low on stock: %d left (threshold %d)", j.product.Name, j.product.Stock, j.product.LowStockThreshold)
}

func (j *LowStockAlert) ToWebhook() notification.WebhookData {
	return notification.WebhookData{Event: "low-stock", Payload: map[string]any{
		"productId":         j.product.ID,
		"productName":       j.product.Name,
		"stock":             j.product.Stock,
		"lowStockThreshold": j.product.LowStockThreshold,
	}}
}

func (j *LowStockAlert) ToSlack() notification.SlackData {
	color := "warning"
	if j.product.Stock == 0 {
		color = "danger"
	}
	return notification.SlackData{
		Text:        ":package: Low stock",
		Attachments: []notification.SlackAttachment{{Color: color, Title: j.product.Name, Text: j.summary()}},
	}
}

func (j *LowStockAlert) ToMail() notification.MailData {
	return notification.MailData{
		Subject: "Low stock: " + j.product.Name,
		Body:    "<p>" + html.EscapeString(j.summary()) + "</p>",
	}
}

// LowStockDigest lists every product at or below its threshold in one
// notification. Nothing is sent when the list is empty.
type LowStockDigest struct {
	deps     *Deps
	products []models.Product
}

func (j *LowStockDigest) Handle(ctx context.Context) error {
	products, err := j.deps.Products.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	j.products = products
	return j.deps.Notifier.Send(ctx, j)
}

func (j *LowStockDigest) Via() []string {
	return []string{notification.Webhook, notification.Slack, notification.Mail}
}

func (j *LowStockDigest) lines() []string {
	out := make([]string, len(j.products))
	for i, p := range j.products {
		out[i] = fmt.Sprintf("%s: %d left (threshold %d)", p.Name, p.Stock, p.LowStockThreshold)
	}
	return out
}

func (j *LowStockDigest) ToWebhook() notification.WebhookData {
	items := make([]map[string]any, len(j.products))
	for i, p := range j.products {
		items[i] = map[string]any{"productId": p.ID, "productName": p.Name, "stock": p.Stock, "lowStockThreshold": p.LowStockThreshold}
	}
	return notification.WebhookData{Event: "low-stock-digest", Payload: items}
}

func (j *LowStockDigest) ToSlack() notification.SlackData {
	return notification.SlackData{
		Text: fmt.Sprintf(":clipboard: %d products low on stock", len(j.products)),
		Attachments: []notification.SlackAttachment{{
			Color: "warning",
			Text:  strings.Join(j.lines(), "\n"),
		}},
	}
}

func (j *LowStockDigest) ToMail() notification.MailData {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, l := range j.lines() {
		b.WriteString("<li>" + html.EscapeString(l) + "</li>")
	}
	b.WriteString("</ul>")
	return notification.MailData{
		Subject: fmt.Sprintf("%d products low on stock", len(j.products)),
		Body:    b.String(),
	}
}
