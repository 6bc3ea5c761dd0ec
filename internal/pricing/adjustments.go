package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-order-edits/internal/lineitems"
	"github.com/imrishuroy/go-order-edits/internal/orders"
)

// AdjustmentProvider recreates a line item's price adjustments from the
// order's discounts. Existing adjustments are always discarded wholesale;
// partial updates would drift as quantities change.
type AdjustmentProvider struct{}

// NewAdjustmentProvider returns an AdjustmentProvider.
func NewAdjustmentProvider() *AdjustmentProvider {
	return &AdjustmentProvider{}
}

// Rebuild computes the full adjustment set for item under calc. Percentage
// discounts apply to the item's own subtotal; fixed discounts allocate a
// proportional share of the order subtotal. Items with discounts disabled
// get none.
func (p *AdjustmentProvider) Rebuild(calc CalculationContext, item lineitems.LineItem) []lineitems.Adjustment {
	if !item.AllowDiscounts {
		return nil
	}

	subtotal := decimal.NewFromInt(item.Subtotal())
	var adjustments []lineitems.Adjustment
	for _, d := range calc.Discounts {
		var amount decimal.Decimal
		switch d.RuleType {
		case orders.DiscountPercentage:
			amount = subtotal.Mul(decimal.NewFromInt(d.Value)).Div(decimal.NewFromInt(100))
		case orders.DiscountFixed:
			if calc.OrderSubtotal <= 0 {
				continue
			}
			amount = decimal.NewFromInt(d.Value).Mul(subtotal).Div(decimal.NewFromInt(calc.OrderSubtotal))
		default:
			continue
		}
		cents := amount.Round(0).IntPart()
		if cents <= 0 {
			continue
		}
		adjustments = append(adjustments, lineitems.Adjustment{
			AdjustmentID: uuid.NewString(),
			Description:  "discount",
			DiscountCode: d.Code,
			Amount:       cents,
		})
	}
	return adjustments
}
