package models

import (
	"strings"

	"gorm.io/gorm"
)

type Category struct {
	Model
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Image       string `gorm:"size:500" json:"image"`
	Description string `gorm:"type:text" json:"description"`
}

// BeforeSave derives the slug from the name when it is empty.
func (c *Category) BeforeSave(*gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	} else {
		c.Slug = Slugify(c.Slug)
	}
	return nil
}
