package pricing

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCalculate(t *testing.T) {
	rates := NewRateTable(60, 120)

	tests := []struct {
		name  string
		quote Quote
		want  Totals
	}{
		{
			name:  "outside zone two units",
			quote: Quote{UnitPrice: 1000, Quantity: 2, Zone: ZoneOutsideLocal},
			want:  Totals{Subtotal: 2000, Shipping: 120, Total: 2120},
		},
		{
			name:  "free delivery ignores zone",
			quote: Quote{UnitPrice: 500, Quantity: 1, Zone: ZoneOutsideLocal, FreeDelivery: true},
			want:  Totals{Subtotal: 500, Shipping: 0, Total: 500},
		},
		{
			name:  "discount and advance",
			quote: Quote{UnitPrice: 1000, Quantity: 1, Zone: ZoneInsideLocal, Discount: 100, Advance: 200},
			want:  Totals{Subtotal: 1000, Shipping: 60, Discount: 100, Advance: 200, Total: 760},
		},
		{
			name:  "negative inputs clamp to zero",
			quote: Quote{UnitPrice: 300, Quantity: 1, Zone: ZoneInsideLocal, Discount: -50, Advance: -10},
			want:  Totals{Subtotal: 300, Shipping: 60, Total: 360},
		},
		{
			name:  "discount larger than subtotal",
			quote: Quote{UnitPrice: 100, Quantity: 1, Zone: ZoneInsideLocal, Discount: 500},
			want:  Totals{Subtotal: 100, Shipping: 60, Discount: 500, Total: 60},
		},
		{
			name:  "advance larger than total",
			quote: Quote{UnitPrice: 100, Quantity: 1, Zone: ZoneInsideLocal, Advance: 1000},
			want:  Totals{Subtotal: 100, Shipping: 60, Advance: 1000, Total: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rates.Calculate(tt.quote)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCalculateErrors(t *testing.T) {
	rates := DefaultRates()
	if _, err := rates.Calculate(Quote{UnitPrice: 1, Quantity: 0, Zone: ZoneInsideLocal}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := rates.Calculate(Quote{UnitPrice: 1, Quantity: 1, Zone: "moon"}); !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone, got %v", err)
	}
}

func TestParseZone(t *testing.T) {
	if z, err := ParseZone(" Outside_Local "); err != nil || z != ZoneOutsideLocal {
		t.Fatalf("expected outside_local, got %q (%v)", z, err)
	}
	if _, err := ParseZone("abroad"); !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone, got %v", err)
	}
}

func TestPricingProperties(t *testing.T) {
	rates := NewRateTable(60, 120)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	zoneGen := gen.OneConstOf(ZoneInsideLocal, ZoneOutsideLocal)

	properties.Property("section total is subtotal plus shipping", prop.ForAll(
		func(price int64, qty int, zone Zone, free bool) bool {
			totals, err := rates.Calculate(Quote{UnitPrice: price, Quantity: qty, Zone: zone, FreeDelivery: free})
			if err != nil {
				return false
			}
			return totals.Total == totals.Subtotal+totals.Shipping
		},
		gen.Int64Range(0, 100000),
		gen.IntRange(1, 50),
		zoneGen,
		gen.Bool(),
	))

	properties.Property("shipping follows the rate table unless free", prop.ForAll(
		func(zone Zone, free bool) bool {
			totals, err := rates.Calculate(Quote{UnitPrice: 10, Quantity: 1, Zone: zone, FreeDelivery: free})
			if err != nil {
				return false
			}
			if free {
				return totals.Shipping == 0
			}
			return totals.Shipping == rates[zone]
		},
		zoneGen,
		gen.Bool(),
	))

	properties.Property("adjusted total never negative and discount never overdraws subtotal", prop.ForAll(
		func(price int64, qty int, discount, advance int64, zone Zone) bool {
			totals, err := rates.Calculate(Quote{UnitPrice: price, Quantity: qty, Zone: zone, Discount: discount, Advance: advance})
			if err != nil {
				return false
			}
			base := totals.Subtotal - totals.Discount
			if base < 0 {
				base = 0
			}
			want := base + totals.Shipping - totals.Advance
			if want < 0 {
				want = 0
			}
			return totals.Total >= 0 && totals.Total == want
		},
		gen.Int64Range(0, 100000),
		gen.IntRange(1, 20),
		gen.Int64Range(-1000, 200000),
		gen.Int64Range(-1000, 200000),
		zoneGen,
	))

	properties.TestingRun(t)
}
