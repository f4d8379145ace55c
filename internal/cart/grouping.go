package cart

import (
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/pricing"
)

// Line is the priced view of one cart row. ListPriceCents is the catalog
// list price, never below the price paid, so DiscountCents is never negative.
// Unavailable lines point at a product that is gone or no longer sold.
type Line struct {
	CartItemID        uuid.UUID  `json:"cart_item_id"`
	ProductID         uuid.UUID  `json:"product_id"`
	VariantID         *uuid.UUID `json:"variant_id,omitempty"`
	NegotiationID     *uuid.UUID `json:"negotiation_id,omitempty"`
	SellerID          uuid.UUID  `json:"seller_id"`
	Title             string     `json:"title"`
	Quantity          int        `json:"quantity"`
	UnitPriceCents    int64      `json:"unit_price_cents"`
	ListPriceCents    int64      `json:"list_price_cents"`
	LineSubtotalCents int64      `json:"line_subtotal_cents"`
	DiscountCents     int64      `json:"discount_cents"`
	LineTotalCents    int64      `json:"line_total_cents"`
	Unavailable       bool       `json:"unavailable,omitempty"`
}

// SellerGroup is one seller segment of the cart.
type SellerGroup struct {
	SellerID      uuid.UUID `json:"seller_id"`
	Lines         []Line    `json:"lines"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	ItemCount     int       `json:"item_count"`
}

// Summary is the cart grouped by seller plus cart-wide totals. Totals are
// priced on the sum of group totals, which is what an order would charge.
// Unavailable rows are listed apart and count toward nothing.
type Summary struct {
	Groups        []SellerGroup  `json:"groups"`
	Unavailable   []Line         `json:"unavailable"`
	ItemCount     int            `json:"item_count"`
	SubtotalCents int64          `json:"subtotal_cents"`
	DiscountCents int64          `json:"discount_cents"`
	Totals        pricing.Totals `json:"totals"`
}

// GroupBySeller buckets lines by seller, keeping sellers in first-seen order.
func GroupBySeller(lines []Line) []SellerGroup {
	index := map[uuid.UUID]int{}
	groups := []SellerGroup{}
	for _, line := range lines {
		pos, ok := index[line.SellerID]
		if !ok {
			pos = len(groups)
			index[line.SellerID] = pos
			groups = append(groups, SellerGroup{SellerID: line.SellerID})
		}
		group := &groups[pos]
		group.Lines = append(group.Lines, line)
		group.SubtotalCents += line.LineSubtotalCents
		group.DiscountCents += line.DiscountCents
		group.TotalCents += line.LineTotalCents
		group.ItemCount += line.Quantity
	}
	return groups
}

func summarize(lines []Line, policy pricing.Policy) *Summary {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].SellerID.String() < lines[j].SellerID.String()
	})
	purchasable := make([]Line, 0, len(lines))
	summary := &Summary{Unavailable: []Line{}}
	for _, line := range lines {
		if line.Unavailable {
			summary.Unavailable = append(summary.Unavailable, line)
			continue
		}
		purchasable = append(purchasable, line)
	}
	summary.Groups = GroupBySeller(purchasable)
	var payable int64
	for _, group := range summary.Groups {
		summary.ItemCount += group.ItemCount
		summary.SubtotalCents += group.SubtotalCents
		summary.DiscountCents += group.DiscountCents
		payable += group.TotalCents
	}
	summary.Totals = policy.Compute(payable, 0)
	return summary
}

func buildLine(checked CheckedLine) Line {
	item := checked.Item
	line := Line{
		CartItemID:     item.ID,
		ProductID:      item.ProductID,
		VariantID:      item.VariantID,
		NegotiationID:  item.NegotiationID,
		Quantity:       item.Quantity,
		UnitPriceCents: item.PriceAtAddCents,
		ListPriceCents: item.PriceAtAddCents,
	}
	line.Unavailable = checked.Avail == nil || !checked.Avail.Purchasable()
	if checked.Avail != nil {
		line.SellerID = checked.Avail.SellerID
		line.Title = checked.Avail.Title
		if checked.Avail.PriceCents > line.ListPriceCents {
			line.ListPriceCents = checked.Avail.PriceCents
		}
	}
	qty := int64(item.Quantity)
	line.LineSubtotalCents = line.ListPriceCents * qty
	line.LineTotalCents = line.UnitPriceCents * qty
	line.DiscountCents = line.LineSubtotalCents - line.LineTotalCents
	return line
}
