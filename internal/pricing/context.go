// Package pricing rebuilds price adjustments and tax lines for individual
// line items. The edit core recomputes a single item at a time, so every
// entry point takes a CalculationContext scoped to that item rather than
// re-deriving the whole order.
package pricing

import "github.com/imrishuroy/go-order-edits/internal/orders"

// CalculationContext carries the order-level pricing inputs needed to
// recompute one line item. Shipping is deliberately excluded: shipping
// methods keep their own tax lines and single-item recomputation must not
// touch them.
type CalculationContext struct {
	Region    orders.Region
	Discounts []orders.Discount

	// OrderSubtotal is the allocation base for fixed-amount discounts,
	// cents. Zero disables fixed-discount allocation entirely.
	OrderSubtotal int64
}

// ContextForOrder builds a calculation context from an order's pricing
// fields and the subtotal of its current effective item set.
func ContextForOrder(o orders.Order, orderSubtotal int64) CalculationContext {
	return CalculationContext{
		Region:        o.Region,
		Discounts:     o.Discounts,
		OrderSubtotal: orderSubtotal,
	}
}
