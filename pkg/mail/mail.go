// Package mail sends HTML email over SMTP.
package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/shashiranjanraj/storefront/config"
)

var ErrNotConfigured = errors.New("mail: MAIL_HOST is not configured")

// SMTP holds connection settings.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// FromConfig reads MAIL_* settings.
func FromConfig() SMTP {
	return SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.MailFromName(),
	}
}

// Mailer delivers messages through one SMTP server.
type Mailer struct {
	cfg SMTP
}

// New returns a mailer for cfg.
func New(cfg SMTP) *Mailer { return &Mailer{cfg: cfg} }

// Send delivers an HTML message to one recipient. Port 465 uses implicit
// TLS; other ports let net/smtp negotiate STARTTLS.
func (m *Mailer) Send(to, subject, html string) error {
	cfg := m.cfg
	if cfg.Host == "" {
		return ErrNotConfigured
	}

	raw := Build(cfg, to, subject, html)
	addr := cfg.Host + ":" + cfg.Port

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if cfg.Port == "465" {
		return sendTLS(addr, cfg.Host, auth, cfg.From, to, raw)
	}
	return smtp.SendMail(addr, auth, cfg.From, []string{to}, raw)
}

func sendTLS(addr, host string, auth smtp.Auth, from, to string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("mail: tls dial: %w", err)
	}
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return w.Close()
}

// Build renders the RFC 5322 message.
func Build(cfg SMTP, to, subject, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", cfg.FromName, cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.NewReplacer("\r", "", "\n", "").Replace(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
