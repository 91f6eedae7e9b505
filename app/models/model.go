// Package models holds the gorm models of the storefront.
package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Model is gorm.Model with camelCase JSON keys.
type Model struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
