// Package pricing 持有两档运费表，并根据区域、数量、单价、优惠与预付金额计算订单总额。
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// Zone 是运费档位。
type Zone string

const (
	ZoneInsideLocal  Zone = "inside_local"
	ZoneOutsideLocal Zone = "outside_local"
)

var (
	ErrUnknownZone     = errors.New("unknown shipping zone")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Zones 返回全部运费档位。
func Zones() []Zone {
	return []Zone{ZoneInsideLocal, ZoneOutsideLocal}
}

// ParseZone 校验并返回运费档位。
func ParseZone(raw string) (Zone, error) {
	zone := Zone(strings.ToLower(strings.TrimSpace(raw)))
	for _, z := range Zones() {
		if zone == z {
			return z, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownZone, raw)
}

// RateTable 是运费的唯一来源，其他组件不得自行写死运费。
type RateTable map[Zone]int64

// DefaultRates 仅在配置缺失时作为兜底。
func DefaultRates() RateTable {
	return RateTable{ZoneInsideLocal: 60, ZoneOutsideLocal: 120}
}

// NewRateTable 用两档运费构造运费表，负数按 0 处理。
func NewRateTable(inside, outside int64) RateTable {
	return RateTable{ZoneInsideLocal: clamp(inside), ZoneOutsideLocal: clamp(outside)}
}

// Rate 返回档位对应的运费。
func (t RateTable) Rate(zone Zone) (int64, error) {
	rate, ok := t[zone]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	return rate, nil
}

// Quote 是一次计价的输入。Discount 与 Advance 只有独立下单页会使用。
type Quote struct {
	UnitPrice    int64
	Quantity     int
	Zone         Zone
	FreeDelivery bool
	Discount     int64
	Advance      int64
}

// Totals 是计价结果。
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Discount int64 `json:"discount"`
	Advance  int64 `json:"advance"`
	Total    int64 `json:"total"`
}

// Calculate 计算：
//
//	subtotal = unitPrice * quantity
//	shipping = freeDelivery ? 0 : rate[zone]
//	total    = max(subtotal - discount, 0) + shipping - advance（结果不小于 0）
//
// 负的 discount / advance 先按 0 处理。
func (t RateTable) Calculate(q Quote) (Totals, error) {
	if q.Quantity < 1 {
		return Totals{}, ErrInvalidQuantity
	}

	shipping, err := t.Rate(q.Zone)
	if err != nil {
		return Totals{}, err
	}
	if q.FreeDelivery {
		shipping = 0
	}

	subtotal := clamp(q.UnitPrice) * int64(q.Quantity)
	discount := clamp(q.Discount)
	advance := clamp(q.Advance)

	total := clamp(subtotal-discount) + shipping - advance

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Advance:  advance,
		Total:    clamp(total),
	}, nil
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
