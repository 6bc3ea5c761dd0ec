package edits

import (
	"context"

	"github.com/imrishuroy/go-order-edits/internal/totals"
)

// GetTotals recomputes the edit's money fields from scratch: parent order
// pricing context plus the materialized item set. Nothing is cached; edits
// are low-frequency and totals must always reflect the latest line item
// state.
func (s *Service) GetTotals(ctx context.Context, editID string) (totals.Totals, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return totals.Totals{}, err
	}
	return s.computeTotals(ctx, edit)
}

func (s *Service) computeTotals(ctx context.Context, edit *OrderEdit) (totals.Totals, error) {
	order, err := s.orders.Get(ctx, edit.OrderID)
	if err != nil {
		return totals.Totals{}, err
	}
	if order == nil {
		return totals.Totals{}, notFound("order", edit.OrderID)
	}

	items, _, err := s.materialize(ctx, edit)
	if err != nil {
		return totals.Totals{}, err
	}

	// The materializer remaps updated items onto the original id for change
	// tracking; monetary computation keys off the physical row the tax lines
	// and adjustments are attached to, so map the identity back.
	physical := map[string]string{}
	for _, change := range edit.Changes {
		if change.Type == ChangeItemUpdate {
			physical[change.OriginalLineItemID] = change.LineItemID
		}
	}
	for i := range items {
		if id, ok := physical[items[i].LineItemID]; ok {
			items[i].LineItemID = id
		}
	}

	view := totals.OrderView{
		Items:           items,
		ShippingMethods: order.ShippingMethods,
		GiftCards:       order.GiftCards,
		Region:          order.Region,
	}
	return totals.Compute(view), nil
}

// DecorateLineItemsAndTotals loads an edit and populates its derived
// fields: change log, materialized items/removed items and the six money
// totals. This is the representation the admin API returns.
func (s *Service) DecorateLineItemsAndTotals(ctx context.Context, editID string) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}

	items, removed, err := s.materialize(ctx, edit)
	if err != nil {
		return nil, err
	}
	edit.Items = items
	edit.RemovedItems = removed

	t, err := s.computeTotals(ctx, edit)
	if err != nil {
		return nil, err
	}
	edit.Totals = &t
	return edit, nil
}
