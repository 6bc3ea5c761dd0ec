package edits

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-edits/internal/dynamotx"
	"github.com/imrishuroy/go-order-edits/internal/lineitems"
	"github.com/imrishuroy/go-order-edits/internal/pricing"
)

// AddLineItemInput is the payload for AddLineItem.
type AddLineItemInput struct {
	VariantID string
	Quantity  int64
	Metadata  map[string]interface{}
}

// AddLineItem generates a brand-new line item from a variant, reserves its
// full quantity, rebuilds its pricing and records an ITEM_ADD change. The
// whole pipeline commits atomically; an inventory shortfall aborts it with
// nothing persisted.
func (s *Service) AddLineItem(ctx context.Context, editID string, in AddLineItemInput) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	if !edit.Active() {
		return nil, notAllowed("add a line item to", edit.EditID, edit.Status())
	}

	variant, err := s.items.GetVariant(ctx, in.VariantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, notFound("variant", in.VariantID)
	}

	tx := dynamotx.New()
	if err := s.inventory.ConfirmAndReserve(ctx, tx, in.VariantID, in.Quantity); err != nil {
		return nil, err
	}

	li := s.items.Generate(*variant, in.Quantity, edit.EditID, in.Metadata)
	if err := s.refreshItemPricing(ctx, tx, edit, &li); err != nil {
		return nil, err
	}

	change := ItemChange{
		OrderEditID: edit.EditID,
		Seq:         nextSeq(edit.Changes),
		ChangeID:    uuid.NewString(),
		Type:        ChangeItemAdd,
		LineItemID:  li.LineItemID,
		CreatedAt:   s.nowFunc(),
	}
	if err := s.store.StageCreateChange(tx, change); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}

	edit.Changes = append(edit.Changes, change)
	return edit, nil
}

// UpdateLineItemInput is the payload for UpdateLineItem.
type UpdateLineItemInput struct {
	Quantity int64
}

// UpdateLineItem records a quantity change for one of the order's original
// line items. The first update clones the original with the new quantity
// and records an ITEM_UPDATE change; subsequent updates mutate the existing
// clone instead of stacking duplicate changes. Raising the quantity past
// the already-fulfilled amount reserves the positive delta and fails the
// whole operation on shortfall.
func (s *Service) UpdateLineItem(ctx context.Context, editID, originalLineItemID string, in UpdateLineItemInput) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	if !edit.Active() {
		return nil, notAllowed("update a line item on", edit.EditID, edit.Status())
	}

	original, err := s.mustGetItem(ctx, originalLineItemID)
	if err != nil {
		return nil, err
	}
	if original.OrderID != edit.OrderID {
		return nil, invalidData("update line item",
			fmt.Sprintf("line item %s does not belong to order %s", originalLineItemID, edit.OrderID))
	}
	for _, change := range edit.Changes {
		// a removed item never surfaces again, so an update would only
		// strand a clone and its reservation
		if change.Type == ChangeItemRemove && change.OriginalLineItemID == originalLineItemID {
			return nil, invalidData("update line item",
				fmt.Sprintf("line item %s has already been removed on order edit %s", originalLineItemID, editID))
		}
	}

	existing := findUpdateChange(edit.Changes, originalLineItemID)
	tx := dynamotx.New()

	if existing == nil {
		if delta := in.Quantity - original.FulfilledQty; delta > 0 {
			if err := s.inventory.ConfirmAndReserve(ctx, tx, original.VariantID, delta); err != nil {
				return nil, err
			}
		}
		clone := s.items.Clone(*original, in.Quantity, edit.EditID)
		if err := s.refreshItemPricing(ctx, tx, edit, &clone); err != nil {
			return nil, err
		}
		change := ItemChange{
			OrderEditID:        edit.EditID,
			Seq:                nextSeq(edit.Changes),
			ChangeID:           uuid.NewString(),
			Type:               ChangeItemUpdate,
			OriginalLineItemID: originalLineItemID,
			LineItemID:         clone.LineItemID,
			CreatedAt:          s.nowFunc(),
		}
		if err := s.store.StageCreateChange(tx, change); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx, s.dynamo); err != nil {
			return nil, err
		}
		edit.Changes = append(edit.Changes, change)
		return edit, nil
	}

	clone, err := s.mustGetItem(ctx, existing.LineItemID)
	if err != nil {
		return nil, err
	}
	// Re-base the reservation on the clone's fulfilled quantity. A
	// transaction cannot touch the same inventory item twice, so stage one
	// update carrying the net difference between the old and new hold.
	oldHold := reservedDelta(*clone)
	newHold := in.Quantity - clone.FulfilledQty
	if newHold < 0 {
		newHold = 0
	}
	switch {
	case newHold > oldHold:
		if err := s.inventory.ConfirmAndReserve(ctx, tx, clone.VariantID, newHold-oldHold); err != nil {
			return nil, err
		}
	case newHold < oldHold:
		s.inventory.StageRelease(tx, clone.VariantID, oldHold-newHold)
	}
	clone.Quantity = in.Quantity
	if err := s.refreshItemPricing(ctx, tx, edit, clone); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}
	return edit, nil
}

// RemoveLineItem records an ITEM_REMOVE change for one of the order's
// original line items. A pending ITEM_UPDATE change for the same item is
// discarded first; removing an item twice is rejected.
func (s *Service) RemoveLineItem(ctx context.Context, editID, originalLineItemID string) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	if !edit.Active() {
		return nil, notAllowed("remove a line item from", edit.EditID, edit.Status())
	}

	original, err := s.mustGetItem(ctx, originalLineItemID)
	if err != nil {
		return nil, err
	}
	if original.OrderID != edit.OrderID {
		return nil, invalidData("remove line item",
			fmt.Sprintf("line item %s does not belong to order %s", originalLineItemID, edit.OrderID))
	}

	remaining := edit.Changes[:0:0]
	tx := dynamotx.New()
	releases := map[string]int64{}
	for _, change := range edit.Changes {
		if change.OriginalLineItemID != originalLineItemID {
			remaining = append(remaining, change)
			continue
		}
		if change.Type == ChangeItemRemove {
			return nil, invalidData("remove line item",
				fmt.Sprintf("line item %s has already been removed on order edit %s", originalLineItemID, editID))
		}
		// pending update for the same item: discard it, the removal wins
		if err := s.stageDiscardChange(ctx, tx, change, releases); err != nil {
			return nil, err
		}
	}
	s.stageReleases(tx, releases)

	change := ItemChange{
		OrderEditID:        edit.EditID,
		Seq:                nextSeq(edit.Changes),
		ChangeID:           uuid.NewString(),
		Type:               ChangeItemRemove,
		OriginalLineItemID: originalLineItemID,
		CreatedAt:          s.nowFunc(),
	}
	if err := s.store.StageCreateChange(tx, change); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}

	edit.Changes = append(remaining, change)
	return edit, nil
}

// refreshItemPricing deletes and recreates the item's price adjustments and
// clears and regenerates its tax lines, using a calculation context scoped
// to only this line item (shipping excluded), then stages the rewritten row.
func (s *Service) refreshItemPricing(ctx context.Context, tx *dynamotx.Tx, edit *OrderEdit, li *lineitems.LineItem) error {
	order, err := s.orders.Get(ctx, edit.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		return notFound("order", edit.OrderID)
	}

	originals, err := s.items.ListByOrder(ctx, edit.OrderID)
	if err != nil {
		return err
	}
	var orderSubtotal int64
	for _, o := range originals {
		orderSubtotal += o.Subtotal()
	}

	calc := pricing.ContextForOrder(*order, orderSubtotal)
	li.Adjustments = s.adjustments.Rebuild(calc, *li)
	li.TaxLines = s.taxes.Rebuild(calc, *li)
	return s.items.StagePut(tx, *li)
}

// findUpdateChange returns the edit's existing ITEM_UPDATE change for the
// original line item, if any. At most one exists per original item.
func findUpdateChange(changes []ItemChange, originalLineItemID string) *ItemChange {
	for i := range changes {
		if changes[i].Type == ChangeItemUpdate && changes[i].OriginalLineItemID == originalLineItemID {
			return &changes[i]
		}
	}
	return nil
}

// nextSeq returns the next append position for the change log.
func nextSeq(changes []ItemChange) int64 {
	var max int64
	for _, c := range changes {
		if c.Seq > max {
			max = c.Seq
		}
	}
	return max + 1
}
