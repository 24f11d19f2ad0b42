package order

import (
	"math"

	"linkmart/internal/lineitem"
)

// ComputeTotals derives an order's financial totals from its line items.
// Pure function: two calls with the same inputs produce identical totals, so
// it is safe to re-run on every mutation path that could change pricing.
//
// Per item with a non-zero effective price (approved price when set, else the
// estimate): the retail subtotal accumulates the price, the wholesale total
// accumulates the price minus the service fee floored at zero. The retail
// total is the subtotal minus the order discount, also floored at zero, and
// the wholesale total is then capped at the retail total.
func ComputeTotals(items []*lineitem.LineItem, discount, serviceFeeCents int64) Totals {
	var t Totals
	for _, item := range items {
		price := item.EffectivePrice()
		if price <= 0 {
			continue
		}
		t.SubtotalRetail += price
		wholesale := price - serviceFeeCents
		if wholesale < 0 {
			wholesale = 0
		}
		t.TotalWholesale += wholesale
		t.EstimatedLinksCount++
	}

	t.TotalRetail = t.SubtotalRetail - discount
	if t.TotalRetail < 0 {
		t.TotalRetail = 0
	}
	// A discount comes out of our margin, never the publishers' share on
	// paper: wholesale must not exceed what the buyer actually pays.
	if t.TotalWholesale > t.TotalRetail {
		t.TotalWholesale = t.TotalRetail
	}

	if t.EstimatedLinksCount > 0 {
		perLink := int64(math.Round(float64(t.TotalRetail) / float64(t.EstimatedLinksCount)))
		t.EstimatedPricePerLink = &perLink
	}

	if t.TotalRetail > 0 {
		margin := float64(t.TotalRetail-t.TotalWholesale) / float64(t.TotalRetail) * 100
		t.ProfitMargin = int(math.Round(margin))
		if t.ProfitMargin < 0 {
			t.ProfitMargin = 0
		}
		if t.ProfitMargin > 100 {
			t.ProfitMargin = 100
		}
	}

	return t
}
