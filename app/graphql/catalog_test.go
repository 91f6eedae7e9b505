package graphql_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/app/graphql"
	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/internal/testutil"
	gql "github.com/shashiranjanraj/storefront/pkg/graphql"
)

func TestCatalogQueries(t *testing.T) {
	db := testutil.DB(t)
	cat := &models.Category{Name: "Lighting"}
	require.NoError(t, db.Create(cat).Error)
	lamp := &models.Product{Name: "Desk Lamp", Price: decimal.RequireFromString("24.5"), CategoryID: cat.ID, Stock: 3, LowStockThreshold: 5}
	require.NoError(t, db.Create(lamp).Error)

	schema, err := graphql.NewSchema(services.NewCatalogService(db, nil, nil, nil))
	require.NoError(t, err)
	srv := httptest.NewServer(gql.Handler(schema))
	defer srv.Close()

	body := `{"query":"query($c:String){ products(category:$c){ id name price lowStock category{ slug } } categories{ name } }","variables":{"c":"lighting"}}`
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Products []struct {
				ID       int    `json:"id"`
				Name     string `json:"name"`
				Price    string `json:"price"`
				LowStock bool   `json:"lowStock"`
				Category struct {
					Slug string `json:"slug"`
				} `json:"category"`
			} `json:"products"`
			Categories []struct {
				Name string `json:"name"`
			} `json:"categories"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Empty(t, out.Errors)
	require.Len(t, out.Data.Products, 1)
	p := out.Data.Products[0]
	assert.Equal(t, int(lamp.ID), p.ID)
	assert.Equal(t, "24.5", p.Price)
	assert.True(t, p.LowStock)
	assert.Equal(t, "lighting", p.Category.Slug)
	require.Len(t, out.Data.Categories, 1)
}

func TestMissingProductIsAnError(t *testing.T) {
	db := testutil.DB(t)
	schema, err := graphql.NewSchema(services.NewCatalogService(db, nil, nil, nil))
	require.NoError(t, err)
	srv := httptest.NewServer(gql.Handler(schema))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?query=" + "%7B%20product(id%3A%2042)%7B%20name%20%7D%20%7D")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Product not found", out.Errors[0].Message)
}

func TestHandlerRejectsEmptyQuery(t *testing.T) {
	schema, err := graphql.NewSchema(nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	gql.Handler(schema)(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
