// Package controllers turns HTTP requests into service calls and service
// results into the JSON envelope.
package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/orm"
)

var statusByKind = map[services.Kind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindNotFound:     http.StatusNotFound,
	services.KindUnauthorized: http.StatusUnauthorized,
	services.KindForbidden:    http.StatusForbidden,
	services.KindConflict:     http.StatusBadRequest,
}

// fail answers with the status of a domain error. Anything else is logged
// and hidden behind a 500.
func fail(c *ctx.Context, err error) {
	var e *services.Error
	if errors.As(err, &e) {
		if status, ok := statusByKind[e.Kind]; ok {
			c.Error(status, e.Message)
			return
		}
	}
	logger.WithCtx(c.Context()).Error("request failed",
		"method", c.R.Method,
		"path", c.R.URL.Path,
		"error", err,
	)
	c.Error(http.StatusInternalServerError, "Internal Server Error")
}

// caller is the identity placed by the auth middleware.
func caller(c *ctx.Context) auth.Identity {
	id, _ := c.Identity()
	return id
}

func pagination(c *ctx.Context) orm.Pagination {
	return orm.NewPagination(c.QueryInt("page", 1), c.QueryInt("limit", orm.DefaultLimit))
}
