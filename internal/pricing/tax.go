package pricing

import (
	"github.com/imrishuroy/go-order-edits/internal/lineitems"
)

// TaxProvider regenerates a line item's tax lines from the region context.
// As with adjustments, existing lines are cleared and rebuilt rather than
// patched in place.
type TaxProvider struct{}

// NewTaxProvider returns a TaxProvider.
func NewTaxProvider() *TaxProvider {
	return &TaxProvider{}
}

// Rebuild computes the tax line set for item under calc. The region's
// default rate always applies; a zero-rate region yields no lines.
func (p *TaxProvider) Rebuild(calc CalculationContext, item lineitems.LineItem) []lineitems.TaxLine {
	if calc.Region.TaxRate == "" || calc.Region.TaxRate == "0" {
		return nil
	}
	return []lineitems.TaxLine{
		{
			Name: calc.Region.Name + " default",
			Code: "default",
			Rate: calc.Region.TaxRate,
		},
	}
}
