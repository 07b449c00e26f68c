package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pagecart/internal/checkout"
	"github.com/pagecart/internal/db"
	"github.com/pagecart/internal/phone"
	"github.com/pagecart/internal/pricing"
	"gorm.io/gorm"
)

var (
	ErrEmptyOrder      = errors.New("order has no items")
	ErrContactRequired = errors.New("name, phone and address are required")
	ErrOrderNotFound   = errors.New("order not found")
)

// OrderService 创建订单。金额一律按数据库中的价格与运费表重新计算，不信任调用方传入的合计。
type OrderService struct {
	db    *gorm.DB
	rates pricing.RateTable
	now   func() time.Time
}

// NewOrderService returns a new OrderService instance.
func NewOrderService(gdb *gorm.DB, rates pricing.RateTable) *OrderService {
	if rates == nil {
		rates = pricing.DefaultRates()
	}
	return &OrderService{db: gdb, rates: rates, now: time.Now}
}

var _ checkout.Submitter = (*OrderService)(nil)

// SubmitOrder 在事务中写入订单与明细，返回订单 ID 与订单号。
// 优惠与预付只对后台手工订单生效。
func (s *OrderService) SubmitOrder(ctx context.Context, req checkout.Request) (checkout.Result, error) {
	if len(req.Items) == 0 {
		return checkout.Result{}, ErrEmptyOrder
	}
	zone, err := pricing.ParseZone(string(req.Zone))
	if err != nil {
		return checkout.Result{}, err
	}
	name := strings.TrimSpace(req.Contact.Name)
	address := strings.TrimSpace(req.Contact.Address)
	number, err := phone.Normalize(req.Contact.Phone)
	if name == "" || address == "" || err != nil {
		return checkout.Result{}, ErrContactRequired
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = checkout.SourceLandingPage
	}

	order := db.Order{
		Number:       s.nextNumber(),
		Source:       source,
		PageSlug:     req.PageSlug,
		SectionID:    req.SectionID,
		Zone:         string(zone),
		CustomerName: name,
		Phone:        number,
		Address:      address,
		FreeDelivery: req.FreeDelivery,
		Status:       db.OrderStatusPending,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subtotal int64
		for _, line := range req.Items {
			if line.Quantity < 1 {
				return pricing.ErrInvalidQuantity
			}
			item, err := loadLine(tx, line)
			if err != nil {
				return err
			}
			subtotal += item.LineTotal
			order.Items = append(order.Items, item)
		}

		quote := pricing.Quote{UnitPrice: subtotal, Quantity: 1, Zone: zone, FreeDelivery: req.FreeDelivery}
		if source == checkout.SourceAdminManual {
			quote.Discount = req.Discount
			quote.Advance = req.Advance
		}
		totals, err := s.rates.Calculate(quote)
		if err != nil {
			return err
		}
		order.Subtotal = totals.Subtotal
		order.Shipping = totals.Shipping
		order.Discount = totals.Discount
		order.Advance = totals.Advance
		order.Total = totals.Total

		return tx.Create(&order).Error
	})
	if err != nil {
		return checkout.Result{}, err
	}
	return checkout.Result{OrderID: order.ID, Number: order.Number}, nil
}

// Get 读取订单及明细。
func (s *OrderService) Get(ctx context.Context, id uint) (*db.Order, error) {
	var order db.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Recent 返回最近的订单。
func (s *OrderService) Recent(ctx context.Context, limit int) ([]db.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var orders []db.Order
	err := s.db.WithContext(ctx).Preload("Items").Order("id desc").Limit(limit).Find(&orders).Error
	return orders, err
}

// AnnotateRisk 记录下单时的快递历史风险等级。
func (s *OrderService) AnnotateRisk(ctx context.Context, id uint, band string) error {
	result := s.db.WithContext(ctx).Model(&db.Order{}).Where("id = ?", id).Update("risk_band", band)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func loadLine(tx *gorm.DB, line checkout.Line) (db.OrderItem, error) {
	var variant db.ProductVariant
	if err := tx.Where("id = ? AND active = ?", line.VariantID, true).First(&variant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.OrderItem{}, fmt.Errorf("%w: %d", ErrVariantUnavailable, line.VariantID)
		}
		return db.OrderItem{}, err
	}
	var product db.Product
	if err := tx.Where("id = ? AND active = ?", variant.ProductID, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.OrderItem{}, fmt.Errorf("%w: %d", ErrVariantUnavailable, line.VariantID)
		}
		return db.OrderItem{}, err
	}

	name := product.Name
	if variant.Name != "" {
		name += " - " + variant.Name
	}
	return db.OrderItem{
		ProductID: product.ID,
		VariantID: variant.ID,
		Name:      name,
		UnitPrice: variant.Price,
		Quantity:  line.Quantity,
		LineTotal: variant.Price * int64(line.Quantity),
	}, nil
}

func (s *OrderService) nextNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PC-%s-%s", s.now().Format("060102"), suffix)
}
