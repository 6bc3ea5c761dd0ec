package edits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/dynamotx"
	"github.com/imrishuroy/go-order-edits/internal/lineitems"
	"github.com/imrishuroy/go-order-edits/internal/orders"
	"github.com/imrishuroy/go-order-edits/internal/pricing"
)

// OrderProvider supplies the parent order with its pricing context.
type OrderProvider interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
}

// LineItemProvider supplies line item reads, clone/generate construction and
// staged writes.
type LineItemProvider interface {
	Get(ctx context.Context, lineItemID string) (*lineitems.LineItem, error)
	ListByOrder(ctx context.Context, orderID string) ([]lineitems.LineItem, error)
	GetVariant(ctx context.Context, variantID string) (*lineitems.Variant, error)
	Clone(original lineitems.LineItem, quantity int64, orderEditID string) lineitems.LineItem
	Generate(variant lineitems.Variant, quantity int64, orderEditID string, metadata map[string]interface{}) lineitems.LineItem
	StagePut(tx *dynamotx.Tx, li lineitems.LineItem) error
	StageDelete(tx *dynamotx.Tx, lineItemID string)
}

// InventoryProvider confirms and reserves stock for quantity increases, and
// releases reservations when changes are rolled back.
type InventoryProvider interface {
	ConfirmAndReserve(ctx context.Context, tx *dynamotx.Tx, variantID string, quantity int64) error
	StageRelease(tx *dynamotx.Tx, variantID string, quantity int64)
}

// AdjustmentProvider recreates a line item's price adjustments.
type AdjustmentProvider interface {
	Rebuild(calc pricing.CalculationContext, item lineitems.LineItem) []lineitems.Adjustment
}

// TaxProvider regenerates a line item's tax lines.
type TaxProvider interface {
	Rebuild(calc pricing.CalculationContext, item lineitems.LineItem) []lineitems.TaxLine
}

// EventStager stages a lifecycle event into the caller's transaction; the
// event becomes visible only if the transaction commits.
type EventStager interface {
	Stage(tx *dynamotx.Tx, eventName, editID, orderID string, payload any) error
}

// Service is the order edit core: lifecycle controller and side-effect
// coordinator over the stores and collaborators.
type Service struct {
	dynamo      aws.DynamoDBAPI
	store       *Store
	orders      OrderProvider
	items       LineItemProvider
	inventory   InventoryProvider
	adjustments AdjustmentProvider
	taxes       TaxProvider
	events      EventStager
	nowFunc     func() time.Time
}

// ServiceConfig groups the Service dependencies.
type ServiceConfig struct {
	DynamoDB    aws.DynamoDBAPI
	Store       *Store
	Orders      OrderProvider
	LineItems   LineItemProvider
	Inventory   InventoryProvider
	Adjustments AdjustmentProvider
	Taxes       TaxProvider
	Events      EventStager
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		dynamo:      cfg.DynamoDB,
		store:       cfg.Store,
		orders:      cfg.Orders,
		items:       cfg.LineItems,
		inventory:   cfg.Inventory,
		adjustments: cfg.Adjustments,
		taxes:       cfg.Taxes,
		events:      cfg.Events,
		nowFunc:     time.Now,
	}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	OrderID      string
	CreatedBy    string
	InternalNote string
}

// Create persists a new edit in status created and emits EventCreated. At
// most one active edit may exist per order; the conflict is enforced by the
// lock row's conditional put inside the same transaction, so a concurrent
// create cannot slip past the pre-check.
func (s *Service) Create(ctx context.Context, in CreateInput) (*OrderEdit, error) {
	order, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, notFound("order", in.OrderID)
	}

	activeID, err := s.store.ActiveEditID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if activeID != "" {
		return nil, invalidData("create",
			fmt.Sprintf("an active order edit (%s) already exists for order %s", activeID, in.OrderID))
	}

	now := s.nowFunc()
	edit := OrderEdit{
		EditID:       uuid.NewString(),
		OrderID:      in.OrderID,
		InternalNote: in.InternalNote,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx := dynamotx.New()
	if err := s.store.StageCreate(tx, edit); err != nil {
		return nil, err
	}
	if err := s.events.Stage(tx, EventCreated, edit.EditID, edit.OrderID, EventPayload{ID: edit.EditID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		if errors.Is(err, dynamotx.ErrConditionFailed) {
			return nil, invalidData("create",
				fmt.Sprintf("an active order edit already exists for order %s", in.OrderID))
		}
		return nil, err
	}
	return &edit, nil
}

// Retrieve loads an edit and its change log.
func (s *Service) Retrieve(ctx context.Context, editID string) (*OrderEdit, error) {
	return s.getWithChanges(ctx, editID)
}

// UpdateInput carries the fields Update may merge. Only explicitly provided
// (non-nil) fields are written.
type UpdateInput struct {
	InternalNote *string
}

// Update merges metadata-only fields into the edit and emits EventUpdated.
// It carries no status restriction.
func (s *Service) Update(ctx context.Context, editID string, in UpdateInput) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	if in.InternalNote != nil {
		edit.InternalNote = *in.InternalNote
	}

	tx := dynamotx.New()
	if err := s.store.StagePut(tx, *edit); err != nil {
		return nil, err
	}
	if err := s.events.Stage(tx, EventUpdated, edit.EditID, edit.OrderID, EventPayload{ID: edit.EditID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}
	return edit, nil
}

// Delete removes an edit, its change log, its cloned items and its lock
// row. Only a created edit may be deleted.
func (s *Service) Delete(ctx context.Context, editID string) error {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return err
	}
	if edit.Status() != StatusCreated {
		return notAllowed("delete", edit.EditID, edit.Status())
	}

	tx := dynamotx.New()
	releases := map[string]int64{}
	for _, change := range edit.Changes {
		if err := s.stageDiscardChange(ctx, tx, change, releases); err != nil {
			return err
		}
	}
	s.stageReleases(tx, releases)
	s.store.StageDeleteEdit(tx, *edit)
	return tx.Commit(ctx, s.dynamo)
}

// RequestConfirmation stamps requested_at/by and emits EventRequested. An
// edit without changes cannot be requested; a second request is an
// idempotent no-op returning the current record.
func (s *Service) RequestConfirmation(ctx context.Context, editID, requestedBy string) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	if len(edit.Changes) == 0 {
		return nil, invalidData("request confirmation",
			fmt.Sprintf("cannot request a confirmation on an order edit (%s) with no changes", editID))
	}
	if edit.Status() == StatusRequested {
		return edit, nil
	}
	if edit.Status() != StatusCreated {
		return nil, notAllowed("request confirmation on", edit.EditID, edit.Status())
	}

	now := s.nowFunc()
	edit.RequestedAt = &now
	edit.RequestedBy = requestedBy

	tx := dynamotx.New()
	if err := s.store.StagePut(tx, *edit); err != nil {
		return nil, err
	}
	if err := s.events.Stage(tx, EventRequested, edit.EditID, edit.OrderID, EventPayload{ID: edit.EditID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}
	return edit, nil
}

// DeclineInput is the payload for Decline.
type DeclineInput struct {
	DeclinedBy string
	Reason     string
}

// Decline stamps declined_at/by/reason and emits EventDeclined. Declining an
// already declined edit is an idempotent no-op preserving the original
// reason; any status other than requested is rejected.
func (s *Service) Decline(ctx context.Context, editID string, in DeclineInput) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	if edit.Status() == StatusDeclined {
		return edit, nil
	}
	if edit.Status() != StatusRequested {
		return nil, notAllowed("decline", edit.EditID, edit.Status())
	}

	now := s.nowFunc()
	edit.DeclinedAt = &now
	edit.DeclinedBy = in.DeclinedBy
	edit.DeclinedReason = in.Reason

	tx := dynamotx.New()
	if err := s.store.StagePut(tx, *edit); err != nil {
		return nil, err
	}
	s.store.StageReleaseLock(tx, edit.OrderID)
	if err := s.stageReleaseReservations(ctx, tx, edit.Changes); err != nil {
		return nil, err
	}
	if err := s.events.Stage(tx, EventDeclined, edit.EditID, edit.OrderID, EventPayload{ID: edit.EditID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}
	return edit, nil
}

// Cancel transitions any non-terminal edit to canceled, releases the
// order's lock and emits EventCanceled. Canceling a canceled edit is an
// idempotent no-op.
func (s *Service) Cancel(ctx context.Context, editID, canceledBy string) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	switch edit.Status() {
	case StatusCanceled:
		return edit, nil
	case StatusConfirmed, StatusDeclined:
		return nil, notAllowed("cancel", edit.EditID, edit.Status())
	}

	now := s.nowFunc()
	edit.CanceledAt = &now
	edit.CanceledBy = canceledBy

	tx := dynamotx.New()
	if err := s.store.StagePut(tx, *edit); err != nil {
		return nil, err
	}
	s.store.StageReleaseLock(tx, edit.OrderID)
	if err := s.stageReleaseReservations(ctx, tx, edit.Changes); err != nil {
		return nil, err
	}
	if err := s.events.Stage(tx, EventCanceled, edit.EditID, edit.OrderID, EventPayload{ID: edit.EditID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}
	return edit, nil
}

// Confirm stamps confirmed_at/by, releases the order's lock and emits
// EventConfirmed. Confirming a confirmed edit is an idempotent no-op;
// canceled and declined edits cannot be confirmed. Applying the confirmed
// changes to the order's own item set is the order subsystem's reaction to
// the event, not part of this core.
func (s *Service) Confirm(ctx context.Context, editID, confirmedBy string) (*OrderEdit, error) {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	switch edit.Status() {
	case StatusConfirmed:
		return edit, nil
	case StatusCanceled, StatusDeclined:
		return nil, notAllowed("confirm", edit.EditID, edit.Status())
	}

	now := s.nowFunc()
	edit.ConfirmedAt = &now
	edit.ConfirmedBy = confirmedBy

	tx := dynamotx.New()
	if err := s.store.StagePut(tx, *edit); err != nil {
		return nil, err
	}
	s.store.StageReleaseLock(tx, edit.OrderID)
	if err := s.events.Stage(tx, EventConfirmed, edit.EditID, edit.OrderID, EventPayload{ID: edit.EditID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx, s.dynamo); err != nil {
		return nil, err
	}
	return edit, nil
}

// DeleteItemChange removes one change from the edit's log, along with the
// cloned or generated item it references. Rejected on confirmed or canceled
// edits, and when the change does not belong to the given edit.
func (s *Service) DeleteItemChange(ctx context.Context, editID, changeID string) error {
	edit, err := s.getWithChanges(ctx, editID)
	if err != nil {
		return err
	}

	var change *ItemChange
	for i := range edit.Changes {
		if edit.Changes[i].ChangeID == changeID {
			change = &edit.Changes[i]
			break
		}
	}
	if change == nil {
		return notFound("item change", changeID)
	}
	if change.OrderEditID != edit.EditID {
		return invalidData("delete item change",
			fmt.Sprintf("item change %s does not belong to order edit %s", changeID, editID))
	}
	if st := edit.Status(); st == StatusConfirmed || st == StatusCanceled {
		return notAllowed("delete an item change from", edit.EditID, st)
	}

	tx := dynamotx.New()
	releases := map[string]int64{}
	if err := s.stageDiscardChange(ctx, tx, *change, releases); err != nil {
		return err
	}
	s.stageReleases(tx, releases)
	return tx.Commit(ctx, s.dynamo)
}

// stageDiscardChange stages removal of a change row plus its clone row. The
// clone's reservation is accumulated into releases rather than staged
// directly: a transaction cannot touch the same inventory item twice, so
// the caller flushes one net release per variant via stageReleases.
func (s *Service) stageDiscardChange(ctx context.Context, tx *dynamotx.Tx, change ItemChange, releases map[string]int64) error {
	s.store.StageDeleteChange(tx, change)
	if change.LineItemID == "" {
		return nil
	}
	li, err := s.items.Get(ctx, change.LineItemID)
	if err != nil {
		return err
	}
	if li == nil {
		return nil
	}
	s.items.StageDelete(tx, li.LineItemID)
	releases[li.VariantID] += reservedDelta(*li)
	return nil
}

// stageReleases flushes accumulated reservation returns, one update per
// variant.
func (s *Service) stageReleases(tx *dynamotx.Tx, releases map[string]int64) {
	for variantID, qty := range releases {
		s.inventory.StageRelease(tx, variantID, qty)
	}
}

// stageReleaseReservations returns every reservation held by the edit's
// clone and generated rows, aggregated per variant.
func (s *Service) stageReleaseReservations(ctx context.Context, tx *dynamotx.Tx, changes []ItemChange) error {
	releases := map[string]int64{}
	for _, change := range changes {
		if change.LineItemID == "" {
			continue
		}
		li, err := s.items.Get(ctx, change.LineItemID)
		if err != nil {
			return err
		}
		if li == nil {
			continue
		}
		releases[li.VariantID] += reservedDelta(*li)
	}
	s.stageReleases(tx, releases)
	return nil
}

// reservedDelta is the stock an edit-owned row currently holds reserved:
// the quantity beyond what the original fulfillment already covers.
func reservedDelta(li lineitems.LineItem) int64 {
	if d := li.Quantity - li.FulfilledQty; d > 0 {
		return d
	}
	return 0
}

func (s *Service) getWithChanges(ctx context.Context, editID string) (*OrderEdit, error) {
	edit, err := s.store.Get(ctx, editID)
	if err != nil {
		return nil, err
	}
	if edit == nil {
		return nil, notFound("order edit", editID)
	}
	changes, err := s.store.ListChanges(ctx, editID)
	if err != nil {
		return nil, err
	}
	edit.Changes = changes
	return edit, nil
}
