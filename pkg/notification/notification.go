// Package notification delivers operator alerts over mail, Slack and
// generic webhooks.
//
// A notification lists its channels in Via and implements the matching
// To* method for each:
//
//	type LowStock struct{ Name string; Stock int }
//	func (LowStock) Via() []string { return []string{notification.Slack} }
//	func (n LowStock) ToSlack() notification.SlackData { ... }
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	client "github.com/shashiranjanraj/storefront/pkg/http"
	"github.com/shashiranjanraj/storefront/pkg/logger"
)

const (
	Mail    = "mail"
	Slack   = "slack"
	Webhook = "webhook"
)

var ErrChannelNotConfigured = errors.New("notification: channel not configured")

type MailData struct {
	To      string
	Subject string
	Body    string
}

type SlackData struct {
	Text        string
	Attachments []SlackAttachment
}

type SlackAttachment struct {
	Color  string `json:"color,omitempty"`
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
	Footer string `json:"footer,omitempty"`
}

type WebhookData struct {
	Event   string
	Payload any
}

type Notification interface {
	Via() []string
}

type Mailable interface{ ToMail() MailData }
type Slackable interface{ ToSlack() SlackData }
type Webhookable interface{ ToWebhook() WebhookData }

// Mailer is satisfied by *mail.Mailer.
type Mailer interface {
	Send(to, subject, html string) error
}

// Options configures a Notifier. Empty fields disable their channel.
type Options struct {
	SlackWebhookURL string
	WebhookURL      string
	MailTo          string
	Mailer          Mailer
	Client          *http.Client
	// Attempts per webhook post; 5xx answers and transport errors retry.
	Attempts  int
	RetryWait time.Duration
}

// Notifier sends notifications to the configured channels.
type Notifier struct {
	opts Options
}

func New(opts Options) *Notifier {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}
	return &Notifier{opts: opts}
}

// Send delivers n through every channel it lists. Unconfigured channels are
// skipped; other failures are joined into the returned error.
func (s *Notifier) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, ch := range n.Via() {
		err := s.dispatch(ctx, ch, n)
		switch {
		case errors.Is(err, ErrChannelNotConfigured):
			logger.WithCtx(ctx).Debug("notification: channel skipped", "channel", ch)
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Notifier) dispatch(ctx context.Context, ch string, n Notification) error {
	switch ch {
	case Mail:
		m, ok := n.(Mailable)
		if !ok {
			return fmt.Errorf("notification: %T is not Mailable", n)
		}
		return s.sendMail(m.ToMail())
	case Slack:
		sl, ok := n.(Slackable)
		if !ok {
			return fmt.Errorf("notification: %T is not Slackable", n)
		}
		d := sl.ToSlack()
		return s.post(ctx, s.opts.SlackWebhookURL, map[string]any{"text": d.Text, "attachments": d.Attachments})
	case Webhook:
		wh, ok := n.(Webhookable)
		if !ok {
			return fmt.Errorf("notification: %T is not Webhookable", n)
		}
		d := wh.ToWebhook()
		return s.post(ctx, s.opts.WebhookURL, map[string]any{"event": d.Event, "data": d.Payload})
	default:
		return fmt.Errorf("notification: unknown channel %q", ch)
	}
}

func (s *Notifier) sendMail(d MailData) error {
	to := d.To
	if to == "" {
		to = s.opts.MailTo
	}
	if s.opts.Mailer == nil || to == "" {
		return ErrChannelNotConfigured
	}
	return s.opts.Mailer.Send(to, d.Subject, d.Body)
}

func (s *Notifier) post(ctx context.Context, url string, body any) error {
	if url == "" {
		return ErrChannelNotConfigured
	}
	resp, err := client.Post(url).
		WithContext(ctx).
		Client(s.opts.Client).
		Body(body).
		Retry(s.opts.Attempts, s.opts.RetryWait).
		Send()
	if err != nil {
		return fmt.Errorf("notification: post: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("notification: %s returned HTTP %d", url, resp.StatusCode)
	}
	return nil
}
