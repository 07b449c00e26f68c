// Package catalog 定义下单流程读取的商品变体契约，具体实现由 service 层提供。
package catalog

import "context"

// Variant 是一个可购买的商品规格。
type Variant struct {
	ID            uint   `json:"id"`
	ProductID     uint   `json:"productId"`
	ProductName   string `json:"productName"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	OriginalPrice *int64 `json:"originalPrice,omitempty"`
	Stock         int    `json:"stock"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// Label 返回 “商品 - 规格” 形式的展示名称。
func (v Variant) Label() string {
	if v.Name == "" {
		return v.ProductName
	}
	if v.ProductName == "" {
		return v.Name
	}
	return v.ProductName + " - " + v.Name
}

// HasDiscount 报告是否存在高于售价的原价。
func (v Variant) HasDiscount() bool {
	return v.OriginalPrice != nil && *v.OriginalPrice > v.Price
}

// Reader 按商品 ID 读取在售变体，按排序键排列，已下架的变体不返回。
type Reader interface {
	Variants(ctx context.Context, productIDs []uint) (map[uint][]Variant, error)
}

// Flatten 按 productIDs 的顺序展开变体列表。
func Flatten(byProduct map[uint][]Variant, productIDs []uint) []Variant {
	var out []Variant
	seen := make(map[uint]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, byProduct[id]...)
	}
	return out
}
