package dynamotx

import (
	"context"
	"errors"
	"strings"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// stubDynamo records TransactWriteItems calls and returns a canned error.
// The read methods are never used by a Tx and fail the test if reached.
type stubDynamo struct {
	t             *testing.T
	transactCalls int
	lastInput     *dyn.TransactWriteItemsInput
	err           error
}

func (s *stubDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	s.transactCalls++
	s.lastInput = params
	if s.err != nil {
		return nil, s.err
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (s *stubDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	s.t.Fatalf("unexpected GetItem call")
	return nil, nil
}

func (s *stubDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	s.t.Fatalf("unexpected PutItem call")
	return nil, nil
}

func (s *stubDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	s.t.Fatalf("unexpected UpdateItem call")
	return nil, nil
}

func (s *stubDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	s.t.Fatalf("unexpected DeleteItem call")
	return nil, nil
}

func (s *stubDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	s.t.Fatalf("unexpected Query call")
	return nil, nil
}

func (s *stubDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	s.t.Fatalf("unexpected Scan call")
	return nil, nil
}

func strAV(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func TestCommit_SingleCall(t *testing.T) {
	stub := &stubDynamo{t: t}
	tx := New()
	tx.Put("orders", map[string]types.AttributeValue{"order_id": strAV("o-1")})
	tx.PutIfNotExists("edits", map[string]types.AttributeValue{"edit_id": strAV("e-1")}, "edit_id")
	tx.Update("inventory",
		map[string]types.AttributeValue{"variant_id": strAV("v-1")},
		"SET reserved_quantity = reserved_quantity + :q", nil,
		map[string]types.AttributeValue{":q": &types.AttributeValueMemberN{Value: "1"}},
		"stocked_quantity - reserved_quantity >= :q")
	tx.Delete("edits", map[string]types.AttributeValue{"edit_id": strAV("e-2")})

	if tx.Len() != 4 {
		t.Fatalf("Len=%d, want 4", tx.Len())
	}
	if err := tx.Commit(context.Background(), stub); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if stub.transactCalls != 1 {
		t.Fatalf("expected 1 TransactWriteItems call, got %d", stub.transactCalls)
	}
	if got := len(stub.lastInput.TransactItems); got != 4 {
		t.Fatalf("expected 4 transact items, got %d", got)
	}
	if stub.lastInput.TransactItems[1].Put.ConditionExpression == nil ||
		*stub.lastInput.TransactItems[1].Put.ConditionExpression != "attribute_not_exists(edit_id)" {
		t.Fatalf("PutIfNotExists condition missing")
	}
	if stub.lastInput.TransactItems[2].Update.ConditionExpression == nil {
		t.Fatalf("Update condition missing")
	}
}

func TestCommit_EmptyIsNoop(t *testing.T) {
	stub := &stubDynamo{t: t}
	tx := New()
	if err := tx.Commit(context.Background(), stub); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if stub.transactCalls != 0 {
		t.Fatalf("empty commit reached DynamoDB")
	}
}

func TestCommit_TwiceFails(t *testing.T) {
	stub := &stubDynamo{t: t}
	tx := New()
	tx.Put("orders", map[string]types.AttributeValue{"order_id": strAV("o-1")})
	if err := tx.Commit(context.Background(), stub); err != nil {
		t.Fatalf("first Commit error: %v", err)
	}
	if err := tx.Commit(context.Background(), stub); err == nil {
		t.Fatalf("second commit should fail")
	}
	if stub.transactCalls != 1 {
		t.Fatalf("second commit reached DynamoDB")
	}
}

func TestCommit_ConditionFailure(t *testing.T) {
	code := "ConditionalCheckFailed"
	msg := "The conditional request failed"
	stub := &stubDynamo{t: t, err: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: strPtr("None")},
			{Code: &code, Message: &msg},
		},
	}}
	tx := New()
	tx.PutIfNotExists("edits", map[string]types.AttributeValue{"edit_id": strAV("e-1")}, "edit_id")

	err := tx.Commit(context.Background(), stub)
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "ConditionalCheckFailed") {
		t.Fatalf("cancellation reason missing from error: %v", err)
	}
}

func TestCommit_OtherErrorPassedThrough(t *testing.T) {
	stub := &stubDynamo{t: t, err: errors.New("throughput exceeded")}
	tx := New()
	tx.Put("orders", map[string]types.AttributeValue{"order_id": strAV("o-1")})

	err := tx.Commit(context.Background(), stub)
	if err == nil || errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
	if !strings.Contains(err.Error(), "throughput exceeded") {
		t.Fatalf("cause missing: %v", err)
	}
}

func strPtr(s string) *string { return &s }
