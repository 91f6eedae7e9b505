package models

type ProductRating struct {
	Model
	UserID           uint   `gorm:"not null;uniqueIndex:idx_rating_user_product" json:"userId"`
	ProductID        uint   `gorm:"not null;uniqueIndex:idx_rating_user_product;index" json:"productId"`
	User             *User  `json:"user,omitempty"`
	Rating           int    `gorm:"not null" json:"rating"`
	Review           string `gorm:"size:500" json:"review"`
	VerifiedPurchase bool   `gorm:"not null;default:false" json:"verifiedPurchase"`
}

type ProductComment struct {
	Model
	UserID           uint           `gorm:"not null;index" json:"userId"`
	ProductID        uint           `gorm:"not null;index" json:"productId"`
	User             *User          `json:"user,omitempty"`
	Content          string         `gorm:"size:1000;not null" json:"content"`
	VerifiedPurchase bool           `gorm:"not null;default:false" json:"verifiedPurchase"`
	Replies          []CommentReply `gorm:"foreignKey:CommentID" json:"replies"`
}

type CommentReply struct {
	Model
	CommentID uint   `gorm:"not null;index" json:"commentId"`
	UserID    uint   `gorm:"not null;index" json:"userId"`
	User      *User  `json:"user,omitempty"`
	Content   string `gorm:"size:1000;not null" json:"content"`
}
