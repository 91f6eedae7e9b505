// Package ctx provides the request Context every controller receives.
//
// Instead of (http.ResponseWriter, *http.Request) a handler gets a single
// *Context with helpers for params, binding, the caller identity and the
// JSON envelope:
//
//	func (oc *OrderController) Show(c *ctx.Context) {
//	    id, ok := c.ParamUint("id")
//	    if !ok {
//	        return // 400 already sent
//	    }
//	    ...
//	    c.Success(order)
//	}
//
//	g.Get("/{id}", "orders.show", ctx.Wrap(oc.Show))
package ctx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/bind"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps one request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R, c.status = w, r, 0
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamUint parses a numeric path parameter. On failure it answers 400 and
// returns false.
func (c *Context) ParamUint(key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || n == 0 {
		c.Error(http.StatusBadRequest, fmt.Sprintf("Invalid %s", key))
		return 0, false
	}
	return uint(n), true
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// QueryInt returns a query value as int, or def when absent or malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Identity returns the authenticated caller, if any.
func (c *Context) Identity() (auth.Identity, bool) {
	return auth.FromContext(c.R.Context())
}

// ─── Binding ──────────────────────────────────────────────────────────────────

// BindJSON decodes and validates the body into dest. It answers 400 on
// malformed JSON and 422 on validation failures, and returns false in both
// cases.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) SetCookie(cookie *http.Cookie) {
	http.SetCookie(c.W, cookie)
}

// JSON writes v with the given status.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

func (c *Context) Success(data any) {
	c.JSON(http.StatusOK, response.New(http.StatusOK, "", data, nil))
}

// Message answers 200 with a message and no data.
func (c *Context) Message(message string) {
	c.JSON(http.StatusOK, response.New(http.StatusOK, message, nil, nil))
}

func (c *Context) Created(data any) {
	c.JSON(http.StatusCreated, response.New(http.StatusCreated, "", data, nil))
}

// Error answers with {"success":false,"status":code,"message":message}.
func (c *Context) Error(code int, message string) {
	c.JSON(code, response.New(code, message, nil, nil))
}

// ValidationError answers 422 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.JSON(http.StatusUnprocessableEntity,
		response.New(http.StatusUnprocessableEntity, "Validation failed", nil, errs))
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
