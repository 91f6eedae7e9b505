package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	cfg := SMTP{From: "noreply@shop.test", FromName: "Shop"}
	raw := string(Build(cfg, "ops@shop.test", "Low stock:\r\nBcc: x", "<p>3 left</p>"))

	assert.True(t, strings.HasPrefix(raw, "From: Shop <noreply@shop.test>\r\n"))
	assert.Contains(t, raw, "Subject: Low stock:Bcc: x\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>3 left</p>"))
}

func TestSendWithoutHost(t *testing.T) {
	assert.ErrorIs(t, New(SMTP{}).Send("a@b.c", "s", "b"), ErrNotConfigured)
}
