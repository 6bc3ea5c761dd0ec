package edits

import (
	"context"

	"github.com/imrishuroy/go-order-edits/internal/lineitems"
)

// ComputeLineItems folds the order's original line items with the edit's
// change log into the effective item set and the removed-item set.
//
// Every original item lands in exactly one of the two sets: removed items
// go to removedItems, updated items are substituted with the clone's data
// but keep the original identity (same slot, new content), untouched items
// pass through. Added items are appended after the originals in change-log
// order. The remapped identity is for change tracking and display; totals
// computation remaps back to the clone id where tax lines live.
func (s *Service) ComputeLineItems(ctx context.Context, editID string) (items, removedItems []lineitems.LineItem, err error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, nil, err
	}
	return s.materialize(ctx, edit)
}

func (s *Service) materialize(ctx context.Context, edit *OrderEdit) (items, removedItems []lineitems.LineItem, err error) {
	removed := map[string]bool{}
	updated := map[string]lineitems.LineItem{}
	var added []lineitems.LineItem

	for _, change := range edit.Changes {
		switch change.Type {
		case ChangeItemRemove:
			li, err := s.mustGetItem(ctx, change.OriginalLineItemID)
			if err != nil {
				return nil, nil, err
			}
			removed[change.OriginalLineItemID] = true
			removedItems = append(removedItems, *li)
		case ChangeItemUpdate:
			li, err := s.mustGetItem(ctx, change.LineItemID)
			if err != nil {
				return nil, nil, err
			}
			substituted := *li
			substituted.LineItemID = change.OriginalLineItemID
			updated[change.OriginalLineItemID] = substituted
		case ChangeItemAdd:
			li, err := s.mustGetItem(ctx, change.LineItemID)
			if err != nil {
				return nil, nil, err
			}
			added = append(added, *li)
		}
	}

	originals, err := s.items.ListByOrder(ctx, edit.OrderID)
	if err != nil {
		return nil, nil, err
	}
	for _, original := range originals {
		if removed[original.LineItemID] {
			continue
		}
		if substituted, ok := updated[original.LineItemID]; ok {
			items = append(items, substituted)
			continue
		}
		items = append(items, original)
	}
	items = append(items, added...)

	return items, removedItems, nil
}

func (s *Service) mustGetItem(ctx context.Context, lineItemID string) (*lineitems.LineItem, error) {
	li, err := s.items.Get(ctx, lineItemID)
	if err != nil {
		return nil, err
	}
	if li == nil {
		return nil, notFound("line item", lineItemID)
	}
	return li, nil
}
