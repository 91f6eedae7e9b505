// Package http is a small retry-aware client for outgoing JSON calls such
// as alert webhooks.
//
//	resp, err := http.Post(url).
//	    WithContext(ctx).
//	    Body(map[string]any{"event": "low-stock"}).
//	    Retry(3, 200*time.Millisecond).
//	    Send()
//	if err == nil && !resp.OK() { ... }
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is used when a request does not set its own client.
var DefaultClient = &gohttp.Client{Transport: defaultTransport}

// Request is a fluent request builder.
type Request struct {
	method    string
	url       string
	headers   map[string]string
	body      any
	timeout   time.Duration
	attempts  int
	retryWait time.Duration
	ctx       context.Context
	client    *gohttp.Client
}

func Get(url string) *Request  { return newRequest(gohttp.MethodGet, url) }
func Post(url string) *Request { return newRequest(gohttp.MethodPost, url) }

func newRequest(method, url string) *Request {
	return &Request{
		method:    method,
		url:       url,
		headers:   map[string]string{"Accept": "application/json"},
		timeout:   10 * time.Second,
		attempts:  1,
		retryWait: 500 * time.Millisecond,
		ctx:       context.Background(),
		client:    DefaultClient,
	}
}

func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Body sets the payload. Strings and byte slices are sent raw, anything
// else as JSON.
func (r *Request) Body(v any) *Request {
	r.body = v
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts and the first backoff, which
// doubles after each failure. Transport errors and 5xx answers are retried.
func (r *Request) Retry(attempts int, wait time.Duration) *Request {
	r.attempts = max(attempts, 1)
	r.retryWait = wait
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Client replaces DefaultClient for this request. A nil client is ignored.
func (r *Request) Client(c *gohttp.Client) *Request {
	if c != nil {
		r.client = c
	}
	return r
}

// Send runs the request. A non-2xx answer is not an error; the last
// response is returned once retries are exhausted.
func (r *Request) Send() (*Response, error) {
	payload, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	var (
		resp    *Response
		lastErr error
	)
	wait := r.retryWait
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, lastErr = r.do(payload, contentType)
		if lastErr == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == r.attempts {
			break
		}

		logger.WithCtx(r.ctx).Warn("http: request failed, retrying",
			"url", r.url, "attempt", attempt, "backoff", wait, "error", lastErr, "status", statusOf(resp))
		if !sleep(r.ctx, wait) {
			break
		}
		wait *= 2
	}

	if lastErr != nil {
		return nil, fmt.Errorf("http: %s %s failed after %d attempts: %w", r.method, r.url, r.attempts, lastErr)
	}
	return resp, nil
}

func (r *Request) do(payload []byte, contentType string) (*Response, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	return &Response{StatusCode: res.StatusCode, Headers: res.Header, Raw: raw}, nil
}

func (r *Request) encodeBody() ([]byte, string, error) {
	switch v := r.body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "text/plain", nil
	case []byte:
		return v, "application/octet-stream", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: marshal body: %w", err)
		}
		return b, "application/json", nil
	}
}

func statusOf(r *Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Response is a fully read answer.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) JSON(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}
