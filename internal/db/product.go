package db

import "gorm.io/gorm"

// Product 是商品，具体售卖单位是 ProductVariant。
type Product struct {
	gorm.Model
	Name     string `gorm:"not null"`
	Slug     string `gorm:"uniqueIndex;not null"`
	ImageURL string
	Active   bool             `gorm:"not null;default:true"`
	Variants []ProductVariant `gorm:"constraint:OnDelete:CASCADE"`
}

// ProductVariant 是可购买的规格。金额单位为整数货币单位。
type ProductVariant struct {
	gorm.Model
	ProductID     uint   `gorm:"index;not null"`
	Name          string `gorm:"not null"`
	Price         int64  `gorm:"not null"`
	OriginalPrice *int64
	Stock         int  `gorm:"not null;default:0"`
	Active        bool `gorm:"not null;default:true"`
	SortOrder     int  `gorm:"not null;default:0;index"`
	ImageURL      string
}
