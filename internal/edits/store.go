package edits

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/dynamotx"
)

// lockPrefix keys the active-edit lock rows stored alongside edit rows.
// One lock row per order enforces the single-active-edit invariant through
// a conditional put inside the same transaction as the edit row, so two
// concurrent creates cannot both commit.
const lockPrefix = "active:"

type activeLock struct {
	EditID      string `dynamodbav:"edit_id"` // PK, "active:<order_id>"
	OrderID     string `dynamodbav:"order_id"`
	OwnerEditID string `dynamodbav:"owner_edit_id"`
}

// Store encapsulates operations on the order-edits and item-changes tables.
type Store struct {
	client       aws.DynamoDBAPI
	tableName    string
	changesTable string
	nowFunc      func() time.Time
}

// NewStore creates a new order edits Store.
func NewStore(client aws.DynamoDBAPI, tableName, changesTable string) *Store {
	return &Store{
		client:       client,
		tableName:    tableName,
		changesTable: changesTable,
		nowFunc:      time.Now,
	}
}

// Get fetches an order edit by id, without its change log. Returns
// (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, editID string) (*OrderEdit, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"edit_id": &types.AttributeValueMemberS{Value: editID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get order edit: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var e OrderEdit
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, fmt.Errorf("unmarshal order edit: %w", err)
	}
	return &e, nil
}

// ActiveEditID returns the id of the order's active edit, or "" when none.
func (s *Store) ActiveEditID(ctx context.Context, orderID string) (string, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"edit_id": &types.AttributeValueMemberS{Value: lockPrefix + orderID},
		},
	})
	if err != nil {
		return "", fmt.Errorf("get active edit lock: %w", err)
	}
	if len(out.Item) == 0 {
		return "", nil
	}
	var lock activeLock
	if err := attributevalue.UnmarshalMap(out.Item, &lock); err != nil {
		return "", fmt.Errorf("unmarshal active edit lock: %w", err)
	}
	return lock.OwnerEditID, nil
}

// ListChanges returns the edit's change log in append order.
func (s *Store) ListChanges(ctx context.Context, editID string) ([]ItemChange, error) {
	keyCond := "order_edit_id = :eid"
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.changesTable,
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":eid": &types.AttributeValueMemberS{Value: editID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query item changes: %w", err)
	}
	var changes []ItemChange
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &changes); err != nil {
		return nil, fmt.Errorf("unmarshal item changes: %w", err)
	}
	return changes, nil
}

// StageCreate stages the new edit row plus the order's active-edit lock.
// Both puts are conditional so a racing create fails the transaction.
func (s *Store) StageCreate(tx *dynamotx.Tx, edit OrderEdit) error {
	item, err := attributevalue.MarshalMap(edit)
	if err != nil {
		return fmt.Errorf("marshal order edit: %w", err)
	}
	tx.PutIfNotExists(s.tableName, item, "edit_id")

	lock := activeLock{
		EditID:      lockPrefix + edit.OrderID,
		OrderID:     edit.OrderID,
		OwnerEditID: edit.EditID,
	}
	lockItem, err := attributevalue.MarshalMap(lock)
	if err != nil {
		return fmt.Errorf("marshal active edit lock: %w", err)
	}
	tx.PutIfNotExists(s.tableName, lockItem, "edit_id")
	return nil
}

// StagePut stages an overwrite of the edit row, bumping updated_at.
func (s *Store) StagePut(tx *dynamotx.Tx, edit OrderEdit) error {
	edit.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(edit)
	if err != nil {
		return fmt.Errorf("marshal order edit: %w", err)
	}
	tx.Put(s.tableName, item)
	return nil
}

// StageDeleteEdit stages removal of the edit row and its lock row.
func (s *Store) StageDeleteEdit(tx *dynamotx.Tx, edit OrderEdit) {
	tx.Delete(s.tableName, map[string]types.AttributeValue{
		"edit_id": &types.AttributeValueMemberS{Value: edit.EditID},
	})
	s.StageReleaseLock(tx, edit.OrderID)
}

// StageReleaseLock stages removal of the order's active-edit lock, freeing
// the order for a future edit once this one reaches a terminal state.
func (s *Store) StageReleaseLock(tx *dynamotx.Tx, orderID string) {
	tx.Delete(s.tableName, map[string]types.AttributeValue{
		"edit_id": &types.AttributeValueMemberS{Value: lockPrefix + orderID},
	})
}

// StageCreateChange stages an append to the change log.
func (s *Store) StageCreateChange(tx *dynamotx.Tx, change ItemChange) error {
	item, err := attributevalue.MarshalMap(change)
	if err != nil {
		return fmt.Errorf("marshal item change: %w", err)
	}
	tx.Put(s.changesTable, item)
	return nil
}

// StageDeleteChange stages removal of one change row.
func (s *Store) StageDeleteChange(tx *dynamotx.Tx, change ItemChange) {
	tx.Delete(s.changesTable, map[string]types.AttributeValue{
		"order_edit_id": &types.AttributeValueMemberS{Value: change.OrderEditID},
		"seq":           &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", change.Seq)},
	})
}
