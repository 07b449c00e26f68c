package db

import (
	"time"

	"gorm.io/gorm"
)

// 订单状态。
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

// Order 是提交后的订单，金额在服务端重新计算后写入。
type Order struct {
	gorm.Model
	Number       string `gorm:"uniqueIndex;not null"`
	Source       string `gorm:"index;not null"`
	PageSlug     string
	SectionID    string
	Zone         string `gorm:"not null"`
	CustomerName string `gorm:"not null"`
	Phone        string `gorm:"index;not null"`
	Address      string `gorm:"type:text;not null"`
	FreeDelivery bool
	Subtotal     int64  `gorm:"not null"`
	Shipping     int64  `gorm:"not null"`
	Discount     int64  `gorm:"not null;default:0"`
	Advance      int64  `gorm:"not null;default:0"`
	Total        int64  `gorm:"not null"`
	Status       string `gorm:"not null;default:pending"`
	RiskBand     string
	Items        []OrderItem `gorm:"constraint:OnDelete:CASCADE"`
}

// OrderItem 是订单中的一行商品，保存下单时的名称与单价。
type OrderItem struct {
	ID        uint `gorm:"primarykey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"not null"`
	VariantID uint `gorm:"not null"`
	Name      string
	UnitPrice int64 `gorm:"not null"`
	Quantity  int   `gorm:"not null"`
	LineTotal int64 `gorm:"not null"`
}

// DraftOrder 是访客填写中的订单快照。同一 SessionID 最多一条未转换的草稿，
// 由写入前先查询保证；转换后不再更新，也不会被删除。
type DraftOrder struct {
	gorm.Model
	SessionID   string `gorm:"index;not null"`
	PageSlug    string
	SectionID   string
	Snapshot    string `gorm:"type:text"`
	Converted   bool   `gorm:"not null;default:false;index"`
	ConvertedAt *time.Time
	OrderID     *uint
}
