// Package totals computes order money fields from a synthetic order view.
// Everything here is a pure function over the view: no storage access, no
// caching. The edit core rebuilds the view and recomputes on every call so
// totals always reflect the latest materialized item set.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-order-edits/internal/lineitems"
	"github.com/imrishuroy/go-order-edits/internal/orders"
)

// OrderView is the synthetic order a totals computation runs over: the
// materialized item set plus the order's pricing context. It is assembled
// per call and never persisted.
type OrderView struct {
	Items           []lineitems.LineItem
	ShippingMethods []orders.ShippingMethod
	GiftCards       []orders.GiftCard
	Region          orders.Region
}

// Totals are the six money fields of a decorated order edit, in cents.
type Totals struct {
	ShippingTotal    int64 `json:"shipping_total"`
	DiscountTotal    int64 `json:"discount_total"`
	TaxTotal         int64 `json:"tax_total"`
	GiftCardTotal    int64 `json:"gift_card_total"`
	GiftCardTaxTotal int64 `json:"gift_card_tax_total"`
	Subtotal         int64 `json:"subtotal"`
	Total            int64 `json:"total"`
}

// Compute derives all totals from the view. Tax is computed per tax line on
// the item's discounted subtotal, rounded per line. Gift cards cover at most
// the pre-gift-card total; their own tax applies only in regions that tax
// gift cards.
func Compute(view OrderView) Totals {
	var t Totals

	for _, item := range view.Items {
		t.Subtotal += item.Subtotal()
		t.DiscountTotal += item.DiscountTotal()
		t.TaxTotal += itemTax(item)
	}

	for _, sm := range view.ShippingMethods {
		t.ShippingTotal += sm.Price
		for _, tl := range sm.TaxLines {
			t.TaxTotal += applyRate(sm.Price, tl.Rate)
		}
	}

	preGiftCard := t.Subtotal - t.DiscountTotal + t.ShippingTotal + t.TaxTotal

	var balance int64
	for _, gc := range view.GiftCards {
		balance += gc.Balance
	}
	t.GiftCardTotal = min64(balance, preGiftCard)
	if t.GiftCardTotal < 0 {
		t.GiftCardTotal = 0
	}
	if view.Region.GiftCardsTaxable {
		t.GiftCardTaxTotal = applyRate(t.GiftCardTotal, view.Region.TaxRate)
	}

	t.Total = preGiftCard - t.GiftCardTotal - t.GiftCardTaxTotal
	return t
}

// itemTax sums the item's tax lines applied to its discounted subtotal.
func itemTax(item lineitems.LineItem) int64 {
	taxable := item.Subtotal() - item.DiscountTotal()
	if taxable <= 0 {
		return 0
	}
	var sum int64
	for _, tl := range item.TaxLines {
		sum += applyRate(taxable, tl.Rate)
	}
	return sum
}

// applyRate applies a percent-points decimal rate string to an amount of
// cents, rounding half away from zero. Unparseable rates count as zero.
func applyRate(amount int64, rate string) int64 {
	if rate == "" {
		return 0
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(r).Div(decimal.NewFromInt(100)).Round(0).IntPart()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
