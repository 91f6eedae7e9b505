package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(value string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", value)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupMiddlewareOrder(t *testing.T) {
	r := New()
	api := r.Group("/api", tag("api"))
	orders := api.Group("orders", tag("orders"))
	orders.Put("/{id}/status", "orders.status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, tag("route"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/orders/5/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"api", "orders", "route"}, rec.Header().Values("X-Chain"))
}

func TestNamedRouteURL(t *testing.T) {
	r := New()
	r.Group("/api").Get("/orders/{id}", "orders.show", func(http.ResponseWriter, *http.Request) {})

	url, err := r.URL("orders.show", map[string]string{"id": "12"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/12", url)

	_, err = r.URL("orders.show", nil)
	assert.Error(t, err)

	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesListing(t *testing.T) {
	r := New()
	g := r.Group("/api/products")
	g.Get("/", "products.index", func(http.ResponseWriter, *http.Request) {})
	g.Post("/", "products.store", func(http.ResponseWriter, *http.Request) {})
	g.Delete("/{id}", "", func(http.ResponseWriter, *http.Request) {})

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, Route{Method: http.MethodGet, Path: "/api/products", Name: "products.index"}, routes[0])
	assert.Equal(t, "/api/products/{id}", routes[2].Path)
}
