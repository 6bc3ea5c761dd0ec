// Package inventory provides stock confirmation for order edits. Raising a
// quantity past what is already fulfilled must reserve the delta; shortfall
// is a precondition failure that aborts the caller's whole transaction.
package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/dynamotx"
)

// Level is the shape stored in the inventory DynamoDB table.
type Level struct {
	VariantID   string `dynamodbav:"variant_id"` // PK
	StockedQty  int64  `dynamodbav:"stocked_quantity"`
	ReservedQty int64  `dynamodbav:"reserved_quantity"`
}

// Available is stock on hand minus standing reservations.
func (l Level) Available() int64 { return l.StockedQty - l.ReservedQty }

// InsufficientStockError reports a failed confirmation.
type InsufficientStockError struct {
	VariantID string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("variant %s does not have the required inventory: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Store encapsulates inventory operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new inventory Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// ConfirmAndReserve checks that quantity units of the variant are available
// and stages a conditional reservation into tx. The early read fails fast
// with InsufficientStockError; the staged condition re-checks availability
// at commit time so concurrent edits cannot overdraw the level.
func (s *Store) ConfirmAndReserve(ctx context.Context, tx *dynamotx.Tx, variantID string, quantity int64) error {
	if quantity <= 0 {
		return nil
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"variant_id": &types.AttributeValueMemberS{Value: variantID},
		},
	})
	if err != nil {
		return fmt.Errorf("get inventory level: %w", err)
	}
	if len(out.Item) == 0 {
		return &InsufficientStockError{VariantID: variantID, Requested: quantity}
	}
	var level Level
	if err := attributevalue.UnmarshalMap(out.Item, &level); err != nil {
		return fmt.Errorf("unmarshal inventory level: %w", err)
	}
	if level.Available() < quantity {
		return &InsufficientStockError{VariantID: variantID, Requested: quantity, Available: level.Available()}
	}

	qty := fmt.Sprintf("%d", quantity)
	tx.Update(s.tableName,
		map[string]types.AttributeValue{
			"variant_id": &types.AttributeValueMemberS{Value: variantID},
		},
		"SET reserved_quantity = reserved_quantity + :q",
		nil,
		map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: qty},
		},
		"stocked_quantity - reserved_quantity >= :q",
	)
	return nil
}

// StageRelease stages returning quantity units of a reservation, used when a
// change that reserved stock is deleted or its edit is canceled.
func (s *Store) StageRelease(tx *dynamotx.Tx, variantID string, quantity int64) {
	if quantity <= 0 {
		return
	}
	qty := fmt.Sprintf("%d", quantity)
	tx.Update(s.tableName,
		map[string]types.AttributeValue{
			"variant_id": &types.AttributeValueMemberS{Value: variantID},
		},
		"SET reserved_quantity = reserved_quantity - :q",
		nil,
		map[string]types.AttributeValue{
			":q": &types.AttributeValueMemberN{Value: qty},
		},
		"reserved_quantity >= :q",
	)
}
