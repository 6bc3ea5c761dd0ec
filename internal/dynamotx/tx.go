// Package dynamotx provides a write-transaction builder over DynamoDB
// TransactWriteItems. Stores stage puts/updates/deletes/condition checks
// against a Tx that the caller commits once; either every staged write
// lands or none do.
package dynamotx

import (
	"context"
	"errors"
	"fmt"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-order-edits/internal/aws"
)

// ErrConditionFailed indicates the transaction was canceled because one of
// the staged condition expressions did not hold.
var ErrConditionFailed = errors.New("transaction condition failed")

// Tx accumulates TransactWriteItems entries. A Tx is single-use: build it,
// commit it, discard it. It is not safe for concurrent use.
type Tx struct {
	items     []types.TransactWriteItem
	committed bool
}

// New returns an empty transaction.
func New() *Tx {
	return &Tx{}
}

// Put stages an unconditional put of item into table.
func (t *Tx) Put(table string, item map[string]types.AttributeValue) {
	t.items = append(t.items, types.TransactWriteItem{
		Put: &types.Put{TableName: &table, Item: item},
	})
}

// PutIfNotExists stages a put guarded by attribute_not_exists on keyAttr.
func (t *Tx) PutIfNotExists(table string, item map[string]types.AttributeValue, keyAttr string) {
	cond := fmt.Sprintf("attribute_not_exists(%s)", keyAttr)
	t.items = append(t.items, types.TransactWriteItem{
		Put: &types.Put{TableName: &table, Item: item, ConditionExpression: &cond},
	})
}

// Update stages an update expression against key in table.
func (t *Tx) Update(table string, key map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue, condition string) {
	u := &types.Update{
		TableName:                 &table,
		Key:                       key,
		UpdateExpression:          &expr,
		ExpressionAttributeValues: values,
	}
	if len(names) > 0 {
		u.ExpressionAttributeNames = names
	}
	if condition != "" {
		u.ConditionExpression = &condition
	}
	t.items = append(t.items, types.TransactWriteItem{Update: u})
}

// Delete stages a delete of key from table.
func (t *Tx) Delete(table string, key map[string]types.AttributeValue) {
	t.items = append(t.items, types.TransactWriteItem{
		Delete: &types.Delete{TableName: &table, Key: key},
	})
}

// Len reports the number of staged writes.
func (t *Tx) Len() int { return len(t.items) }

// Commit issues the single TransactWriteItems call. An empty Tx commits as
// a no-op. Condition failures are reported as ErrConditionFailed so callers
// can translate them into domain errors.
func (t *Tx) Commit(ctx context.Context, client aws.DynamoDBAPI) error {
	if t.committed {
		return errors.New("transaction already committed")
	}
	t.committed = true
	if len(t.items) == 0 {
		return nil
	}

	input := &dyn.TransactWriteItemsInput{TransactItems: t.items}
	if _, err := client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %s", ErrConditionFailed, cancelReasons(tce))
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

func cancelReasons(tce *types.TransactionCanceledException) string {
	for _, r := range tce.CancellationReasons {
		if r.Code != nil && *r.Code != "None" {
			if r.Message != nil {
				return fmt.Sprintf("%s (%s)", *r.Code, *r.Message)
			}
			return *r.Code
		}
	}
	return "canceled"
}
