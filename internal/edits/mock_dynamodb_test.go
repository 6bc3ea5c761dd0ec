package edits

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Test table names shared by the whole package.
const (
	tblEdits     = "order-edits"
	tblChanges   = "item-changes"
	tblOrders    = "orders"
	tblItems     = "line-items"
	tblVariants  = "product-variants"
	tblInventory = "inventory"
	tblOutbox    = "outbox"
)

// mockDynamo is a small in-memory DynamoDB used by the package tests. It
// supports exactly the calls and expressions the stores issue; anything
// else fails loudly. Items are kept per table keyed by the concatenated key
// attribute values.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]*mockTable

	getCalls      int
	putCalls      int
	queryCalls    int
	scanCalls     int
	updateCalls   int
	transactCalls int
}

type mockTable struct {
	keys  []string
	items map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	m := &mockDynamo{tables: map[string]*mockTable{}}
	for tbl, keys := range map[string][]string{
		tblEdits:     {"edit_id"},
		tblChanges:   {"order_edit_id", "seq"},
		tblOrders:    {"order_id"},
		tblItems:     {"line_item_id"},
		tblVariants:  {"variant_id"},
		tblInventory: {"variant_id"},
		tblOutbox:    {"event_id"},
	} {
		m.tables[tbl] = &mockTable{keys: keys, items: map[string]map[string]types.AttributeValue{}}
	}
	return m
}

func (m *mockDynamo) table(name string) *mockTable {
	tbl, ok := m.tables[name]
	if !ok {
		panic("mockDynamo: unknown table " + name)
	}
	return tbl
}

func avString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func avNumber(item map[string]types.AttributeValue, attr string) int64 {
	av, ok := item[attr]
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(avString(av), 10, 64)
	return n
}

func (t *mockTable) keyOf(attrs map[string]types.AttributeValue) string {
	parts := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		parts = append(parts, avString(attrs[k]))
	}
	return strings.Join(parts, "|")
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	tbl := m.table(*params.TableName)
	item, ok := tbl.items[tbl.keyOf(params.Key)]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	tbl := m.table(*params.TableName)
	key := tbl.keyOf(params.Item)
	if params.ConditionExpression != nil && strings.HasPrefix(*params.ConditionExpression, "attribute_not_exists") {
		if _, exists := tbl.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	tbl.items[key] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl := m.table(*params.TableName)
	delete(tbl.items, tbl.keyOf(params.Key))
	return &dyn.DeleteItemOutput{}, nil
}

// Query supports the two shapes the stores issue: a partition query on the
// table's first key attribute, and a GSI query treated as an attribute
// equality filter.
func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCalls++
	tbl := m.table(*params.TableName)

	cond := *params.KeyConditionExpression
	parts := strings.SplitN(cond, " = ", 2)
	if len(parts) != 2 {
		return nil, errors.New("mockDynamo: unsupported key condition " + cond)
	}
	attr, placeholder := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	want := avString(params.ExpressionAttributeValues[placeholder])

	var keys []string
	for k, item := range tbl.items {
		if avString(item[attr]) == want {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, tbl.items[k])
	}
	return &dyn.QueryOutput{Items: out}, nil
}

// Scan supports only the outbox pending filter.
func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	tbl := m.table(*params.TableName)
	var out []map[string]types.AttributeValue
	for _, item := range tbl.items {
		if params.FilterExpression != nil && *params.FilterExpression == "attribute_not_exists(sent_at)" {
			if _, sent := item["sent_at"]; sent {
				continue
			}
		}
		out = append(out, item)
	}
	return &dyn.ScanOutput{Items: out}, nil
}

// UpdateItem supports single SET assignments with the conditions the stores
// use.
func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	tbl := m.table(*params.TableName)
	item, ok := tbl.items[tbl.keyOf(params.Key)]
	if !ok {
		return nil, errors.New("mockDynamo: update of missing item")
	}
	if params.ConditionExpression != nil {
		if !evalCondition(*params.ConditionExpression, item, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	applyUpdate(*params.UpdateExpression, item, params.ExpressionAttributeValues)
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++

	// validate everything before applying anything
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			tbl := m.table(*it.Put.TableName)
			if it.Put.ConditionExpression != nil && strings.HasPrefix(*it.Put.ConditionExpression, "attribute_not_exists") {
				if _, exists := tbl.items[tbl.keyOf(it.Put.Item)]; exists {
					return nil, canceled()
				}
			}
		case it.Update != nil:
			tbl := m.table(*it.Update.TableName)
			item, ok := tbl.items[tbl.keyOf(it.Update.Key)]
			if !ok {
				return nil, canceled()
			}
			if it.Update.ConditionExpression != nil {
				if !evalCondition(*it.Update.ConditionExpression, item, it.Update.ExpressionAttributeValues) {
					return nil, canceled()
				}
			}
		}
	}

	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			tbl := m.table(*it.Put.TableName)
			tbl.items[tbl.keyOf(it.Put.Item)] = it.Put.Item
		case it.Update != nil:
			tbl := m.table(*it.Update.TableName)
			item := tbl.items[tbl.keyOf(it.Update.Key)]
			applyUpdate(*it.Update.UpdateExpression, item, it.Update.ExpressionAttributeValues)
		case it.Delete != nil:
			tbl := m.table(*it.Delete.TableName)
			delete(tbl.items, tbl.keyOf(it.Delete.Key))
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func canceled() error {
	code := "ConditionalCheckFailed"
	return &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: &code}},
	}
}

func evalCondition(cond string, item map[string]types.AttributeValue, values map[string]types.AttributeValue) bool {
	switch {
	case strings.HasPrefix(cond, "attribute_not_exists("):
		attr := strings.TrimSuffix(strings.TrimPrefix(cond, "attribute_not_exists("), ")")
		_, exists := item[attr]
		return !exists
	case cond == "stocked_quantity - reserved_quantity >= :q":
		q, _ := strconv.ParseInt(avString(values[":q"]), 10, 64)
		return avNumber(item, "stocked_quantity")-avNumber(item, "reserved_quantity") >= q
	case cond == "reserved_quantity >= :q":
		q, _ := strconv.ParseInt(avString(values[":q"]), 10, 64)
		return avNumber(item, "reserved_quantity") >= q
	}
	panic("mockDynamo: unsupported condition " + cond)
}

func applyUpdate(expr string, item map[string]types.AttributeValue, values map[string]types.AttributeValue) {
	switch {
	case expr == "SET reserved_quantity = reserved_quantity + :q":
		q, _ := strconv.ParseInt(avString(values[":q"]), 10, 64)
		set := strconv.FormatInt(avNumber(item, "reserved_quantity")+q, 10)
		item["reserved_quantity"] = &types.AttributeValueMemberN{Value: set}
	case expr == "SET reserved_quantity = reserved_quantity - :q":
		q, _ := strconv.ParseInt(avString(values[":q"]), 10, 64)
		set := strconv.FormatInt(avNumber(item, "reserved_quantity")-q, 10)
		item["reserved_quantity"] = &types.AttributeValueMemberN{Value: set}
	case expr == "SET sent_at = :sa":
		item["sent_at"] = values[":sa"]
	default:
		panic("mockDynamo: unsupported update expression " + expr)
	}
}

// seed writes a marshaled fixture straight into a mock table.
func seed(t *testing.T, m *mockDynamo, table string, fixture interface{}) {
	t.Helper()
	item, err := attributevalue.MarshalMap(fixture)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	tbl := m.table(table)
	tbl.items[tbl.keyOf(item)] = item
}

// countTable returns the number of rows in a mock table.
func (m *mockDynamo) countTable(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table(table).items)
}

// outboxEvents lists staged event names, in no particular order.
func (m *mockDynamo) outboxEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, item := range m.table(tblOutbox).items {
		names = append(names, avString(item["event_name"]))
	}
	return names
}
