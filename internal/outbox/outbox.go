// Package outbox implements a transactional outbox on DynamoDB. Lifecycle
// events are staged as puts inside the same TransactWriteItems call as the
// state change they describe, so an event record existing implies the write
// committed. A relay (cmd/worker) publishes pending records to SQS and marks
// them sent.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-edits/internal/aws"
	"github.com/imrishuroy/go-order-edits/internal/dynamotx"
)

// Record is the shape persisted in the outbox DynamoDB table.
type Record struct {
	EventID   string    `dynamodbav:"event_id" json:"event_id"` // PK
	EventName string    `dynamodbav:"event_name" json:"event_name"`
	EditID    string    `dynamodbav:"edit_id" json:"edit_id"`
	OrderID   string    `dynamodbav:"order_id" json:"order_id"`
	Payload   string    `dynamodbav:"payload" json:"payload"` // JSON body published to SQS
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	SentAt    string    `dynamodbav:"sent_at,omitempty" json:"sent_at,omitempty"`
}

// Store encapsulates outbox operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Stage marshals an event record and appends its put to tx. The record is
// only visible once the caller's transaction commits.
func (s *Store) Stage(tx *dynamotx.Tx, eventName, editID, orderID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	rec := Record{
		EventID:   uuid.NewString(),
		EventName: eventName,
		EditID:    editID,
		OrderID:   orderID,
		Payload:   string(body),
		CreatedAt: s.nowFunc(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal outbox record: %w", err)
	}
	tx.Put(s.tableName, item)
	return nil
}

// Get fetches an outbox record by event id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, eventID string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: eventID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get outbox record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal outbox record: %w", err)
	}
	return &rec, nil
}

// ListPending scans for records not yet marked sent. Used by the relay's
// local polling mode; the Lambda path consumes the table's stream instead.
func (s *Store) ListPending(ctx context.Context, limit int32) ([]Record, error) {
	filter := "attribute_not_exists(sent_at)"
	out, err := s.client.Scan(ctx, &dyn.ScanInput{
		TableName:        &s.tableName,
		FilterExpression: &filter,
		Limit:            &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("scan outbox: %w", err)
	}
	var recs []Record
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal outbox records: %w", err)
	}
	return recs, nil
}

// ErrAlreadySent indicates the record was marked sent by a competing relay.
var ErrAlreadySent = errors.New("outbox record already sent")

// MarkSent stamps sent_at, conditional on the record not being sent yet.
// Duplicate stream deliveries surface as ErrAlreadySent and are skipped.
func (s *Store) MarkSent(ctx context.Context, eventID string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: eventID},
		},
		UpdateExpression: awsString("SET sent_at = :sa"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sa": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("attribute_not_exists(sent_at)"),
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		// detect conditional check failure
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrAlreadySent
		}
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
