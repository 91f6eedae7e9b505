package models

import (
	"strings"

	"gorm.io/gorm"
)

// User is a shopper or an administrator. IsAdmin is only ever set
// explicitly.
type User struct {
	Model
	FirstName string `gorm:"size:100" json:"firstName"`
	LastName  string `gorm:"size:100" json:"lastName"`
	Username  string `gorm:"size:30" json:"username,omitempty"`
	Email     string `gorm:"size:255;uniqueIndex;not null" json:"email,omitempty"`
	Password  string `gorm:"size:255;not null" json:"-"`
	Address   string `gorm:"size:255" json:"address,omitempty"`
	Phone     string `gorm:"size:50" json:"phone,omitempty"`
	IsAdmin   bool   `gorm:"not null;default:false" json:"isAdmin"`
}

func (u *User) BeforeSave(*gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// DisplayName prefers the full name, then the username.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}
