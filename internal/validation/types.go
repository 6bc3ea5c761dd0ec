package validation

// CreateOrderEditRequest is the payload for POST /order-edits.
type CreateOrderEditRequest struct {
	OrderID      string `json:"order_id" validate:"required"`
	CreatedBy    string `json:"created_by" validate:"required"`
	InternalNote string `json:"internal_note,omitempty"`
}

// UpdateOrderEditRequest is the payload for POST /order-edits/:id. Only
// explicitly provided fields are merged; an empty body is rejected by the
// struct-level rule.
type UpdateOrderEditRequest struct {
	InternalNote *string `json:"internal_note,omitempty"`
}

// RequestConfirmationRequest is the payload for POST /order-edits/:id/request.
type RequestConfirmationRequest struct {
	RequestedBy string `json:"requested_by" validate:"required"`
}

// DeclineOrderEditRequest is the payload for POST /order-edits/:id/decline.
type DeclineOrderEditRequest struct {
	DeclinedBy string `json:"declined_by" validate:"required"`
	Reason     string `json:"declined_reason,omitempty"`
}

// ConfirmOrderEditRequest is the payload for POST /order-edits/:id/confirm.
type ConfirmOrderEditRequest struct {
	ConfirmedBy string `json:"confirmed_by" validate:"required"`
}

// CancelOrderEditRequest is the payload for POST /order-edits/:id/cancel.
type CancelOrderEditRequest struct {
	CanceledBy string `json:"canceled_by" validate:"required"`
}

// AddLineItemRequest is the payload for POST /order-edits/:id/items.
type AddLineItemRequest struct {
	VariantID string                 `json:"variant_id" validate:"required"`
	Quantity  int64                  `json:"quantity" validate:"required,min=1"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateLineItemRequest is the payload for POST /order-edits/:id/items/:item_id.
type UpdateLineItemRequest struct {
	Quantity int64 `json:"quantity" validate:"required,min=1"`
}
