package orders

import (
	"time"

	"github.com/imrishuroy/go-order-edits/internal/lineitems"
)

// Discount rule types
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Discount is an order-level discount with its rule inlined.
type Discount struct {
	Code     string `dynamodbav:"code" json:"code"`
	RuleType string `dynamodbav:"rule_type" json:"rule_type"` // percentage | fixed
	Value    int64  `dynamodbav:"value" json:"value"`         // percent points or cents
}

// GiftCard is a gift card applied to the order. Balance is in cents.
type GiftCard struct {
	Code    string `dynamodbav:"code" json:"code"`
	Balance int64  `dynamodbav:"balance" json:"balance"`
}

// Region carries the tax context the order was placed in. TaxRate is a
// decimal string in percent points (e.g. "19").
type Region struct {
	Name             string `dynamodbav:"name" json:"name"`
	TaxRate          string `dynamodbav:"tax_rate" json:"tax_rate"`
	GiftCardsTaxable bool   `dynamodbav:"gift_cards_taxable" json:"gift_cards_taxable"`
}

// ShippingMethod is one shipping method attached to the order, with its own
// tax lines. Price is in cents.
type ShippingMethod struct {
	ShippingMethodID string              `dynamodbav:"shipping_method_id" json:"id"`
	Name             string              `dynamodbav:"name" json:"name"`
	Price            int64               `dynamodbav:"price" json:"price"`
	TaxLines         []lineitems.TaxLine `dynamodbav:"tax_lines,omitempty" json:"tax_lines,omitempty"`
}

// Order represents the item stored in the orders DynamoDB table, with the
// full pricing context (discounts, gift cards, region, shipping methods)
// embedded so totals can be recomputed without extra round trips.
type Order struct {
	OrderID         string           `dynamodbav:"order_id" json:"id"` // PK
	CustomerID      string           `dynamodbav:"customer_id,omitempty" json:"customer_id,omitempty"`
	CartID          string           `dynamodbav:"cart_id,omitempty" json:"cart_id,omitempty"`
	CurrencyCode    string           `dynamodbav:"currency_code" json:"currency_code"`
	Region          Region           `dynamodbav:"region" json:"region"`
	Discounts       []Discount       `dynamodbav:"discounts,omitempty" json:"discounts,omitempty"`
	GiftCards       []GiftCard       `dynamodbav:"gift_cards,omitempty" json:"gift_cards,omitempty"`
	ShippingMethods []ShippingMethod `dynamodbav:"shipping_methods,omitempty" json:"shipping_methods,omitempty"`
	CreatedAt       time.Time        `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `dynamodbav:"updated_at" json:"updated_at"`
}
