// Package orm holds query helpers shared by the repositories.
package orm

import (
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination is returned next to every paginated listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPagination clamps page and limit to sane values.
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Limit }

// Paginate counts the rows matched by q, then loads one page of them into
// dest ordered by order. q must have its model set.
func Paginate(q *gorm.DB, p Pagination, order string, dest any) (Pagination, error) {
	if err := q.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return p, err
	}

	p.Pages = int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
	if p.Total == 0 {
		return p, nil
	}

	page := q.Session(&gorm.Session{}).Offset(p.Offset()).Limit(p.Limit)
	if order != "" {
		page = page.Order(order)
	}
	return p, page.Find(dest).Error
}
