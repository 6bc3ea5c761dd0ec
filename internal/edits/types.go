// Package edits implements post-checkout order editing: an append-only
// change log of line item adds/removes/updates against a placed order, the
// materialization of that log into an effective item set, totals
// recomputation, and the create/request/decline/confirm/cancel lifecycle.
package edits

import (
	"time"

	"github.com/imrishuroy/go-order-edits/internal/lineitems"
	"github.com/imrishuroy/go-order-edits/internal/totals"
)

// Status of an order edit, derived from its timestamps and never stored.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
	StatusCanceled  Status = "canceled"
)

// Change types recorded in an edit's change log.
type ChangeType string

const (
	ChangeItemAdd    ChangeType = "item_add"
	ChangeItemRemove ChangeType = "item_remove"
	ChangeItemUpdate ChangeType = "item_update"
)

// ItemChange is one recorded add/remove/update within an edit's change log,
// stored in the item-changes table under the edit's partition. Seq preserves
// append order. OriginalLineItemID is the logical id (REMOVE/UPDATE);
// LineItemID is the physical id of the new or cloned row (ADD/UPDATE).
// Consumers pick the identifier that fits: display and grouping key off the
// logical id, monetary computation off the physical one.
type ItemChange struct {
	OrderEditID        string     `dynamodbav:"order_edit_id" json:"order_edit_id"` // PK
	Seq                int64      `dynamodbav:"seq" json:"seq"`                     // SK
	ChangeID           string     `dynamodbav:"change_id" json:"id"`
	Type               ChangeType `dynamodbav:"type" json:"type"`
	OriginalLineItemID string     `dynamodbav:"original_line_item_id,omitempty" json:"original_line_item_id,omitempty"`
	LineItemID         string     `dynamodbav:"line_item_id,omitempty" json:"line_item_id,omitempty"`
	CreatedAt          time.Time  `dynamodbav:"created_at" json:"created_at"`
}

// OrderEdit represents the item stored in the order-edits DynamoDB table.
// The status is derived from the nullable timestamps; Changes, Items,
// RemovedItems and Totals are populated on demand and never persisted.
type OrderEdit struct {
	EditID         string     `dynamodbav:"edit_id" json:"id"` // PK
	OrderID        string     `dynamodbav:"order_id" json:"order_id"`
	InternalNote   string     `dynamodbav:"internal_note,omitempty" json:"internal_note,omitempty"`
	CreatedBy      string     `dynamodbav:"created_by" json:"created_by"`
	RequestedBy    string     `dynamodbav:"requested_by,omitempty" json:"requested_by,omitempty"`
	RequestedAt    *time.Time `dynamodbav:"requested_at,omitempty" json:"requested_at,omitempty"`
	ConfirmedBy    string     `dynamodbav:"confirmed_by,omitempty" json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time `dynamodbav:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	DeclinedBy     string     `dynamodbav:"declined_by,omitempty" json:"declined_by,omitempty"`
	DeclinedAt     *time.Time `dynamodbav:"declined_at,omitempty" json:"declined_at,omitempty"`
	DeclinedReason string     `dynamodbav:"declined_reason,omitempty" json:"declined_reason,omitempty"`
	CanceledBy     string     `dynamodbav:"canceled_by,omitempty" json:"canceled_by,omitempty"`
	CanceledAt     *time.Time `dynamodbav:"canceled_at,omitempty" json:"canceled_at,omitempty"`
	CreatedAt      time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `dynamodbav:"updated_at" json:"updated_at"`

	Changes      []ItemChange         `dynamodbav:"-" json:"changes,omitempty"`
	Items        []lineitems.LineItem `dynamodbav:"-" json:"items,omitempty"`
	RemovedItems []lineitems.LineItem `dynamodbav:"-" json:"removed_items,omitempty"`
	Totals       *totals.Totals       `dynamodbav:"-" json:"totals,omitempty"`
}

// Status derives the lifecycle state from the timestamp fields in fixed
// priority order: confirmed > canceled > declined > requested > created.
func (e *OrderEdit) Status() Status {
	switch {
	case e.ConfirmedAt != nil:
		return StatusConfirmed
	case e.CanceledAt != nil:
		return StatusCanceled
	case e.DeclinedAt != nil:
		return StatusDeclined
	case e.RequestedAt != nil:
		return StatusRequested
	default:
		return StatusCreated
	}
}

// Active reports whether the edit can still accumulate changes, i.e. it has
// not reached a terminal state.
func (e *OrderEdit) Active() bool {
	s := e.Status()
	return s == StatusCreated || s == StatusRequested
}

// Lifecycle event names published through the outbox.
const (
	EventCreated   = "order-edit.created"
	EventUpdated   = "order-edit.updated"
	EventRequested = "order-edit.requested"
	EventDeclined  = "order-edit.declined"
	EventConfirmed = "order-edit.confirmed"
	EventCanceled  = "order-edit.canceled"
)

// EventPayload is the body published for every lifecycle event.
type EventPayload struct {
	ID string `json:"id"`
}
