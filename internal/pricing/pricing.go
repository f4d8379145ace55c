// Package pricing computes shipping, tax and totals in integer minor units.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
)

// ShippingTier applies FeeCents to subtotals at or above MinSubtotalCents.
type ShippingTier struct {
	MinSubtotalCents int64
	FeeCents         int64
}

type Policy struct {
	tiers             []ShippingTier
	taxRate           decimal.Decimal
	minimumOrderCents int64
}

// Totals satisfies TotalCents = Subtotal + Shipping + Tax - Discount.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TaxCents      int64 `json:"tax_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

func NewPolicy(tiers []ShippingTier, taxRate decimal.Decimal, minimumOrderCents int64) Policy {
	sorted := make([]ShippingTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinSubtotalCents > sorted[j].MinSubtotalCents
	})
	return Policy{tiers: sorted, taxRate: taxRate, minimumOrderCents: minimumOrderCents}
}

// PolicyFromConfig builds the two-tier flat rate: FlatShippingCents below the
// free shipping threshold, nothing at or above it.
func PolicyFromConfig(cfg config.CommerceConfig) Policy {
	return NewPolicy([]ShippingTier{
		{MinSubtotalCents: 0, FeeCents: cfg.FlatShippingCents},
		{MinSubtotalCents: cfg.FreeShippingThreshold, FeeCents: 0},
	}, cfg.TaxRateDecimal(), cfg.MinimumOrderCents)
}

func (p Policy) MinimumOrderCents() int64 {
	return p.minimumOrderCents
}

// ShippingCents is zero for an empty subtotal.
func (p Policy) ShippingCents(subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	for _, tier := range p.tiers {
		if subtotalCents >= tier.MinSubtotalCents {
			return tier.FeeCents
		}
	}
	return 0
}

// TaxCents rounds half away from zero to the nearest minor unit.
func (p Policy) TaxCents(taxableCents int64) int64 {
	if taxableCents <= 0 {
		return 0
	}
	return decimal.NewFromInt(taxableCents).Mul(p.taxRate).Round(0).IntPart()
}

// Compute prices a subtotal with an externally supplied discount. The
// discount is clamped to the subtotal and tax applies after it.
func (p Policy) Compute(subtotalCents, discountCents int64) Totals {
	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > subtotalCents {
		discountCents = subtotalCents
	}
	shipping := p.ShippingCents(subtotalCents)
	tax := p.TaxCents(subtotalCents - discountCents)
	return Totals{
		SubtotalCents: subtotalCents,
		ShippingCents: shipping,
		TaxCents:      tax,
		DiscountCents: discountCents,
		TotalCents:    subtotalCents + shipping + tax - discountCents,
	}
}

// Consistent re-verifies the totals identity.
func (t Totals) Consistent() bool {
	return t.TotalCents == t.SubtotalCents+t.ShippingCents+t.TaxCents-t.DiscountCents
}
