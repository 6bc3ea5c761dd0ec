package lineitems

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/dynamotx"
)

// OrderIndex is the GSI used to list a placed order's items.
const OrderIndex = "order_id-index"

// Store encapsulates operations on the line-items and product-variants tables.
type Store struct {
	client        aws.DynamoDBAPI
	tableName     string
	variantsTable string
	nowFunc       func() time.Time
}

// NewStore creates a new line items Store.
func NewStore(client aws.DynamoDBAPI, tableName, variantsTable string) *Store {
	return &Store{
		client:        client,
		tableName:     tableName,
		variantsTable: variantsTable,
		nowFunc:       time.Now,
	}
}

// Get fetches a line item by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, lineItemID string) (*LineItem, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"line_item_id": &types.AttributeValueMemberS{Value: lineItemID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get line item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var li LineItem
	if err := attributevalue.UnmarshalMap(out.Item, &li); err != nil {
		return nil, fmt.Errorf("unmarshal line item: %w", err)
	}
	return &li, nil
}

// ListByOrder returns the order's line items in their natural order (rank,
// then id as a tiebreak for legacy rows created with equal rank).
func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]LineItem, error) {
	keyCond := "order_id = :oid"
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              awsString(OrderIndex),
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	var items []LineItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Rank != items[j].Rank {
			return items[i].Rank < items[j].Rank
		}
		return items[i].LineItemID < items[j].LineItemID
	})
	return items, nil
}

// GetVariant fetches a product variant by id. Returns (nil, nil) if not found.
func (s *Store) GetVariant(ctx context.Context, variantID string) (*Variant, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.variantsTable,
		Key: map[string]types.AttributeValue{
			"variant_id": &types.AttributeValueMemberS{Value: variantID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get variant: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var v Variant
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal variant: %w", err)
	}
	return &v, nil
}

// Clone builds a full copy of original with order/cart/claim/swap linkage
// stripped, quantity overridden and a fresh identity. The clone references
// its source through OriginalItemID and the owning edit through OrderEditID.
// Tax lines and adjustments are not carried over; the coordinator rebuilds
// them for the new quantity.
func (s *Store) Clone(original LineItem, quantity int64, orderEditID string) LineItem {
	now := s.nowFunc()
	clone := original
	clone.LineItemID = uuid.NewString()
	clone.OrderID = ""
	clone.CartID = ""
	clone.SwapID = ""
	clone.ClaimOrderID = ""
	clone.OrderEditID = orderEditID
	clone.OriginalItemID = original.LineItemID
	clone.Quantity = quantity
	clone.TaxLines = nil
	clone.Adjustments = nil
	clone.CreatedAt = now
	clone.UpdatedAt = now
	return clone
}

// Generate builds a brand-new line item from a variant for an ADD change.
func (s *Store) Generate(variant Variant, quantity int64, orderEditID string, metadata map[string]interface{}) LineItem {
	now := s.nowFunc()
	return LineItem{
		LineItemID:     uuid.NewString(),
		OrderEditID:    orderEditID,
		VariantID:      variant.VariantID,
		ProductID:      variant.ProductID,
		Title:          variant.Title,
		UnitPrice:      variant.UnitPrice,
		Quantity:       quantity,
		AllowDiscounts: true,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// StagePut marshals the item and stages its write into tx.
func (s *Store) StagePut(tx *dynamotx.Tx, li LineItem) error {
	li.UpdatedAt = s.nowFunc()
	item, err := attributevalue.MarshalMap(li)
	if err != nil {
		return fmt.Errorf("marshal line item: %w", err)
	}
	tx.Put(s.tableName, item)
	return nil
}

// StageDelete stages removal of a line item row into tx.
func (s *Store) StageDelete(tx *dynamotx.Tx, lineItemID string) {
	tx.Delete(s.tableName, map[string]types.AttributeValue{
		"line_item_id": &types.AttributeValueMemberS{Value: lineItemID},
	})
}

func awsString(s string) *string { return &s }
