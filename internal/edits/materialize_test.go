package edits

import (
	"context"
	"testing"
)

func TestComputeLineItems_Remove(t *testing.T) {
	env := newTestEnv(t)
	seedTwoItemOrder(t, env)
	ctx := context.Background()

	edit, err := env.svc.Create(ctx, CreateInput{OrderID: "order-1", CreatedBy: "admin-1"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := env.svc.RemoveLineItem(ctx, edit.EditID, "li-1"); err != nil {
		t.Fatalf("RemoveLineItem error: %v", err)
	}

	items, removed, err := env.svc.ComputeLineItems(ctx, edit.EditID)
	if err != nil {
		t.Fatalf("ComputeLineItems error: %v", err)
	}
	if len(items) != 1 || items[0].LineItemID != "li-2" {
		t.Fatalf("expected only li-2 to survive, got %+v", items)
	}
	if len(removed) != 1 || removed[0].LineItemID != "li-1" {
		t.Fatalf("expected li-1 removed, got %+v", removed)
	}
}

func TestComputeLineItems_UpdateKeepsOriginalIdentity(t *testing.T) {
	env := newTestEnv(t)
	seedTwoItemOrder(t, env)
	ctx := context.Background()

	edit, err := env.svc.Create(ctx, CreateInput{OrderID: "order-1", CreatedBy: "admin-1"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := env.svc.UpdateLineItem(ctx, edit.EditID, "li-1", UpdateLineItemInput{Quantity: 4}); err != nil {
		t.Fatalf("UpdateLineItem error: %v", err)
	}

	items, removed, err := env.svc.ComputeLineItems(ctx, edit.EditID)
	if err != nil {
		t.Fatalf("ComputeLineItems error: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("unexpected removed items: %+v", removed)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	// first slot keeps the original id but carries the clone's quantity
	if items[0].LineItemID != "li-1" || items[0].Quantity != 4 {
		t.Fatalf("substitution wrong: id=%s qty=%d", items[0].LineItemID, items[0].Quantity)
	}
	if items[0].OriginalItemID != "li-1" {
		t.Fatalf("substituted item should be the clone, got original_item_id=%q", items[0].OriginalItemID)
	}
	if items[1].LineItemID != "li-2" || items[1].Quantity != 1 {
		t.Fatalf("untouched item changed: %+v", items[1])
	}
}

func TestComputeLineItems_AddAppends(t *testing.T) {
	env := newTestEnv(t)
	seedTwoItemOrder(t, env)
	ctx := context.Background()

	edit, err := env.svc.Create(ctx, CreateInput{OrderID: "order-1", CreatedBy: "admin-1"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := env.svc.AddLineItem(ctx, edit.EditID, AddLineItemInput{VariantID: "var-3", Quantity: 2}); err != nil {
		t.Fatalf("AddLineItem error: %v", err)
	}

	items, removed, err := env.svc.ComputeLineItems(ctx, edit.EditID)
	if err != nil {
		t.Fatalf("ComputeLineItems error: %v", err)
	}
	if len(removed) != 0 {
		t.Fatalf("unexpected removed items: %+v", removed)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	addedItem := items[2]
	if addedItem.VariantID != "var-3" || addedItem.Quantity != 2 || addedItem.Title != "Hat" {
		t.Fatalf("added item wrong: %+v", addedItem)
	}
	if addedItem.OrderEditID != edit.EditID {
		t.Fatalf("added item not linked to the edit: %+v", addedItem)
	}
}

func TestComputeLineItems_MixedPartition(t *testing.T) {
	env := newTestEnv(t)
	seedTwoItemOrder(t, env)
	ctx := context.Background()

	edit, err := env.svc.Create(ctx, CreateInput{OrderID: "order-1", CreatedBy: "admin-1"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := env.svc.RemoveLineItem(ctx, edit.EditID, "li-1"); err != nil {
		t.Fatalf("RemoveLineItem error: %v", err)
	}
	if _, err := env.svc.UpdateLineItem(ctx, edit.EditID, "li-2", UpdateLineItemInput{Quantity: 2}); err != nil {
		t.Fatalf("UpdateLineItem error: %v", err)
	}
	if _, err := env.svc.AddLineItem(ctx, edit.EditID, AddLineItemInput{VariantID: "var-3", Quantity: 1}); err != nil {
		t.Fatalf("AddLineItem error: %v", err)
	}

	items, removed, err := env.svc.ComputeLineItems(ctx, edit.EditID)
	if err != nil {
		t.Fatalf("ComputeLineItems error: %v", err)
	}

	// every effective id appears once and never overlaps the removed set
	seen := map[string]bool{}
	for _, li := range items {
		if seen[li.LineItemID] {
			t.Fatalf("duplicate item id %s", li.LineItemID)
		}
		seen[li.LineItemID] = true
	}
	for _, li := range removed {
		if seen[li.LineItemID] {
			t.Fatalf("item %s is both effective and removed", li.LineItemID)
		}
	}
	if len(items) != 2 || len(removed) != 1 {
		t.Fatalf("expected 2 effective and 1 removed, got %d/%d", len(items), len(removed))
	}
	if items[0].LineItemID != "li-2" || items[0].Quantity != 2 {
		t.Fatalf("updated item wrong: %+v", items[0])
	}
	if items[1].VariantID != "var-3" {
		t.Fatalf("added item wrong: %+v", items[1])
	}
}
