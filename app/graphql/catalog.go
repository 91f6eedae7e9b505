// Package graphql exposes the catalog as a read-only GraphQL schema.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/services"
	gql "github.com/shashiranjanraj/storefront/pkg/graphql"
)

func id(p graphql.ResolveParams) (any, error) {
	switch v := p.Source.(type) {
	case models.Category:
		return int(v.ID), nil
	case *models.Category:
		return int(v.ID), nil
	case models.Product:
		return int(v.ID), nil
	case *models.Product:
		return int(v.ID), nil
	}
	return nil, nil
}

func product(src any) *models.Product {
	switch v := src.(type) {
	case models.Product:
		return &v
	case *models.Product:
		return v
	}
	return nil
}

var categoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Category",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: id},
		"name":        &graphql.Field{Type: graphql.String},
		"slug":        &graphql.Field{Type: graphql.String},
		"image":       &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: id},
		"name": &graphql.Field{Type: graphql.String},
		// Decimal string, e.g. "12.5".
		"price": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (any, error) {
			if pr := product(p.Source); pr != nil {
				return pr.Price.String(), nil
			}
			return nil, nil
		}},
		"category":          &graphql.Field{Type: categoryType},
		"description":       &graphql.Field{Type: graphql.String},
		"image":             &graphql.Field{Type: graphql.String},
		"stock":             &graphql.Field{Type: graphql.Int},
		"lowStockThreshold": &graphql.Field{Type: graphql.Int},
		"lowStock":          &graphql.Field{Type: graphql.Boolean},
		"averageRating":     &graphql.Field{Type: graphql.Float},
		"ratingCount":       &graphql.Field{Type: graphql.Int},
	},
})

// NewSchema builds the catalog schema on top of the catalog service.
func NewSchema(catalog *services.CatalogService) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type: graphql.NewList(categoryType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.Categories(p.Context)
				},
			},
			"category": &graphql.Field{
				Type: categoryType,
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.CategoryBySlug(p.Context, p.Args["slug"].(string))
				},
			},
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
					"page":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					q := services.ProductQuery{Page: p.Args["page"].(int), Limit: p.Args["limit"].(int)}
					q.Category, _ = p.Args["category"].(string)
					q.Search, _ = p.Args["search"].(string)
					page, err := catalog.Products(p.Context, q)
					if err != nil {
						return nil, err
					}
					return page.Products, nil
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return catalog.FindProductByID(p.Context, uint(p.Args["id"].(int)))
				},
			},
		},
	})
	return gql.NewSchema(query)
}
