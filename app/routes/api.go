// Package routes holds the HTTP route table.
package routes

import (
	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/rbac"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// Controllers bundles every handler the route table needs.
type Controllers struct {
	Auth       *controllers.AuthController
	Users      *controllers.UserController
	Categories *controllers.CategoryController
	Products   *controllers.ProductController
	Orders     *controllers.OrderController
	Reviews    *controllers.ReviewController
	Realtime   *controllers.RealtimeController
}

func RegisterAPI(r *router.Router, h Controllers) {
	api := r.Group("/api")
	user := api.Group("", middleware.Authenticate)
	admin := api.Group("", middleware.Authenticate, rbac.AdminOnly)

	api.Post("/auth/register", "auth.register", ctx.Wrap(h.Auth.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(h.Auth.Login))
	api.Post("/auth/logout", "auth.logout", ctx.Wrap(h.Auth.Logout))
	user.Get("/auth/me", "auth.me", ctx.Wrap(h.Auth.Me))
	user.Put("/auth/me", "auth.me.update", ctx.Wrap(h.Auth.UpdateMe))

	admin.Get("/users", "users.index", ctx.Wrap(h.Users.Index))
	admin.Get("/users/{id}", "users.show", ctx.Wrap(h.Users.Show))
	admin.Put("/users/{id}", "users.update", ctx.Wrap(h.Users.Update))
	admin.Delete("/users/{id}", "users.destroy", ctx.Wrap(h.Users.Destroy))

	api.Get("/categories", "categories.index", ctx.Wrap(h.Categories.Index))
	api.Get("/categories/{slug}", "categories.show", ctx.Wrap(h.Categories.Show))
	admin.Post("/categories", "categories.store", ctx.Wrap(h.Categories.Store))
	admin.Put("/categories/{id}", "categories.update", ctx.Wrap(h.Categories.Update))
	admin.Delete("/categories/{id}", "categories.destroy", ctx.Wrap(h.Categories.Destroy))

	api.Get("/products", "products.index", ctx.Wrap(h.Products.Index))
	admin.Get("/products/low-stock", "products.low-stock", ctx.Wrap(h.Products.LowStock))
	api.Get("/products/{id}", "products.show", ctx.Wrap(h.Products.Show))
	admin.Post("/products", "products.store", ctx.Wrap(h.Products.Store))
	admin.Put("/products/{id}", "products.update", ctx.Wrap(h.Products.Update))
	admin.Delete("/products/{id}", "products.destroy", ctx.Wrap(h.Products.Destroy))
	admin.Put("/products/{id}/stock", "products.stock", ctx.Wrap(h.Products.UpdateStock))
	admin.Post("/products/{id}/image", "products.image", ctx.Wrap(h.Products.UploadImage))

	api.Get("/products/{id}/ratings", "ratings.index", ctx.Wrap(h.Reviews.Ratings))
	user.Post("/products/{id}/ratings", "ratings.store", ctx.Wrap(h.Reviews.Rate))
	user.Put("/ratings/{id}", "ratings.update", ctx.Wrap(h.Reviews.UpdateRating))
	user.Delete("/ratings/{id}", "ratings.destroy", ctx.Wrap(h.Reviews.DeleteRating))

	api.Get("/products/{id}/comments", "comments.index", ctx.Wrap(h.Reviews.Comments))
	user.Post("/products/{id}/comments", "comments.store", ctx.Wrap(h.Reviews.Comment))
	user.Put("/comments/{id}", "comments.update", ctx.Wrap(h.Reviews.UpdateComment))
	user.Delete("/comments/{id}", "comments.destroy", ctx.Wrap(h.Reviews.DeleteComment))
	user.Post("/comments/{id}/replies", "replies.store", ctx.Wrap(h.Reviews.Reply))
	user.Delete("/comments/{id}/replies/{replyId}", "replies.destroy", ctx.Wrap(h.Reviews.DeleteReply))

	user.Post("/orders", "orders.store", ctx.Wrap(h.Orders.Store))
	user.Get("/orders", "orders.index", ctx.Wrap(h.Orders.Index))
	admin.Get("/orders/admin/all", "orders.admin.index", ctx.Wrap(h.Orders.AdminIndex))
	admin.Get("/orders/admin/stats", "orders.admin.stats", ctx.Wrap(h.Orders.Stats))
	user.Get("/orders/{id}", "orders.show", ctx.Wrap(h.Orders.Show))
	admin.Put("/orders/{id}/status", "orders.status", ctx.Wrap(h.Orders.UpdateStatus))
	admin.Put("/orders/{id}/pay", "orders.pay", ctx.Wrap(h.Orders.Pay))

	api.Get("/ws", "realtime.ws", h.Realtime.WebSocket, middleware.OptionalAuth)
	api.Get("/events", "realtime.events", h.Realtime.Events, middleware.OptionalAuth)
}
