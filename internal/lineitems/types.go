package lineitems

import "time"

// TaxLine is one tax rate applied to a line item. Rate is a decimal string
// (e.g. "19" for 19%) so rate math never goes through floats.
type TaxLine struct {
	Name string `dynamodbav:"name" json:"name"`
	Code string `dynamodbav:"code,omitempty" json:"code,omitempty"`
	Rate string `dynamodbav:"rate" json:"rate"`
}

// Adjustment is one discount amount allocated to a line item, in cents.
type Adjustment struct {
	AdjustmentID string `dynamodbav:"adjustment_id" json:"adjustment_id"`
	Description  string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	DiscountCode string `dynamodbav:"discount_code,omitempty" json:"discount_code,omitempty"`
	Amount       int64  `dynamodbav:"amount" json:"amount"`
}

// LineItem represents the item stored in the line-items DynamoDB table.
// Items belonging to a placed order carry OrderID; clones created for an
// order edit carry OrderEditID (and OriginalItemID) instead, so they never
// show up in the order's item listing until an edit is confirmed.
type LineItem struct {
	LineItemID     string                 `dynamodbav:"line_item_id" json:"id"`                // PK
	OrderID        string                 `dynamodbav:"order_id,omitempty" json:"order_id,omitempty"` // GSI PK
	CartID         string                 `dynamodbav:"cart_id,omitempty" json:"cart_id,omitempty"`
	SwapID         string                 `dynamodbav:"swap_id,omitempty" json:"swap_id,omitempty"`
	ClaimOrderID   string                 `dynamodbav:"claim_order_id,omitempty" json:"claim_order_id,omitempty"`
	OrderEditID    string                 `dynamodbav:"order_edit_id,omitempty" json:"order_edit_id,omitempty"`
	OriginalItemID string                 `dynamodbav:"original_item_id,omitempty" json:"original_item_id,omitempty"`
	VariantID      string                 `dynamodbav:"variant_id,omitempty" json:"variant_id,omitempty"`
	ProductID      string                 `dynamodbav:"product_id,omitempty" json:"product_id,omitempty"`
	Title          string                 `dynamodbav:"title" json:"title"`
	Description    string                 `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Thumbnail      string                 `dynamodbav:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	UnitPrice      int64                  `dynamodbav:"unit_price" json:"unit_price"` // cents
	Quantity       int64                  `dynamodbav:"quantity" json:"quantity"`
	FulfilledQty   int64                  `dynamodbav:"fulfilled_quantity,omitempty" json:"fulfilled_quantity,omitempty"`
	ShippedQty     int64                  `dynamodbav:"shipped_quantity,omitempty" json:"shipped_quantity,omitempty"`
	AllowDiscounts bool                   `dynamodbav:"allow_discounts" json:"allow_discounts"`
	Rank           int                    `dynamodbav:"rank" json:"rank"` // position within the order
	TaxLines       []TaxLine              `dynamodbav:"tax_lines,omitempty" json:"tax_lines,omitempty"`
	Adjustments    []Adjustment           `dynamodbav:"adjustments,omitempty" json:"adjustments,omitempty"`
	Metadata       map[string]interface{} `dynamodbav:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time              `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt      time.Time              `dynamodbav:"updated_at" json:"updated_at"`
}

// Subtotal is unit price times quantity, before discounts and tax.
func (li LineItem) Subtotal() int64 {
	return li.UnitPrice * li.Quantity
}

// DiscountTotal sums the item's adjustments.
func (li LineItem) DiscountTotal() int64 {
	var sum int64
	for _, a := range li.Adjustments {
		sum += a.Amount
	}
	return sum
}

// Variant is the shape stored in the product-variants table; the minimal
// catalog data needed to generate a brand-new line item for an edit.
type Variant struct {
	VariantID string `dynamodbav:"variant_id" json:"id"` // PK
	ProductID string `dynamodbav:"product_id" json:"product_id"`
	SKU       string `dynamodbav:"sku,omitempty" json:"sku,omitempty"`
	Title     string `dynamodbav:"title" json:"title"`
	UnitPrice int64  `dynamodbav:"unit_price" json:"unit_price"` // cents
}
