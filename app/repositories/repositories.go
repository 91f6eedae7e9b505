// Package repositories is the gorm persistence layer. Every repository is
// bound to a *gorm.DB; WithTx returns a copy bound to a transaction.
package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = gorm.ErrRecordNotFound

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// withAuthor preloads User with the public columns only.
func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Select("id", "first_name", "last_name", "username", "is_admin")
}
