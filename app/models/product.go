package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RatingDistribution counts ratings per star value.
type RatingDistribution struct {
	One   int `gorm:"not null;default:0" json:"one"`
	Two   int `gorm:"not null;default:0" json:"two"`
	Three int `gorm:"not null;default:0" json:"three"`
	Four  int `gorm:"not null;default:0" json:"four"`
	Five  int `gorm:"not null;default:0" json:"five"`
}

// Add counts one rating of the given star value; values outside 1..5 are ignored.
func (d *RatingDistribution) Add(stars, n int) {
	switch stars {
	case 1:
		d.One += n
	case 2:
		d.Two += n
	case 3:
		d.Three += n
	case 4:
		d.Four += n
	case 5:
		d.Five += n
	}
}

type Product struct {
	Model
	Name               string             `gorm:"size:120;not null;index" json:"name"`
	Price              decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	CategoryID         uint               `gorm:"not null;index" json:"categoryId"`
	Category           *Category          `json:"category,omitempty"`
	Description        string             `gorm:"type:text" json:"description"`
	Image              string             `gorm:"size:500" json:"image"`
	Stock              int                `gorm:"not null;default:0" json:"stock"`
	LowStockThreshold  int                `gorm:"not null" json:"lowStockThreshold"`
	AverageRating      float64            `gorm:"not null;default:0" json:"averageRating"`
	RatingCount        int                `gorm:"not null;default:0" json:"ratingCount"`
	RatingDistribution RatingDistribution `gorm:"embedded;embeddedPrefix:rating_" json:"ratingDistribution"`

	LowStock bool `gorm:"-" json:"lowStock"`
}

func (p *Product) refreshLowStock() { p.LowStock = p.Stock <= p.LowStockThreshold }

func (p *Product) AfterFind(*gorm.DB) error {
	p.refreshLowStock()
	return nil
}

func (p *Product) AfterSave(*gorm.DB) error {
	p.refreshLowStock()
	return nil
}
