// Package awstest provides in-memory fakes of the AWS client interfaces for
// unit tests.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is an in-memory DynamoDB supporting the narrow subset of expressions
// the stores issue: SET updates with plain values and conditions built from
// attribute_exists, attribute_not_exists and equality joined by AND.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string]string // table -> pk attribute
	tables map[string]map[string]map[string]types.AttributeValue

	// Errs forces an operation ("PutItem", "GetItem", ...) to fail.
	Errs map[string]error
	// Unprocessed makes the next BatchGetItem call hand back this many keys
	// as unprocessed.
	Unprocessed int
	// Calls counts invocations per operation.
	Calls map[string]int
	// Transactions records every TransactWriteItems input.
	Transactions []*dyn.TransactWriteItemsInput
}

// NewDynamo returns an empty fake. tables maps table name to its partition key attribute.
func NewDynamo(tables map[string]string) *Dynamo {
	d := &Dynamo{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
		Errs:   map[string]error{},
		Calls:  map[string]int{},
	}
	for name, pk := range tables {
		d.keys[name] = pk
		d.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return d
}

// Seed stores item directly, bypassing conditions.
func (d *Dynamo) Seed(table string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := d.pkValue(table, item)
	if err != nil {
		panic(err)
	}
	d.tables[table][pk] = copyItem(item)
}

// Item returns a copy of the stored item, or nil.
func (d *Dynamo) Item(table, pk string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.tables[table][pk]
	if !ok {
		return nil
	}
	return copyItem(item)
}

// Len returns the number of items in table.
func (d *Dynamo) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[table])
}

func (d *Dynamo) begin(op string) error {
	d.Calls[op]++
	return d.Errs[op]
}

func (d *Dynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("PutItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := d.pkValue(table, params.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, d.tables[table][pk])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: awsString("The conditional request failed")}
	}
	d.tables[table][pk] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("GetItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := d.pkValue(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := d.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("UpdateItem"); err != nil {
		return nil, err
	}
	table := *params.TableName
	pk, err := d.pkValue(table, params.Key)
	if err != nil {
		return nil, err
	}
	current := d.tables[table][pk]
	ok, err := evalCondition(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, current)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: awsString("The conditional request failed")}
	}
	updated, err := applySet(current, params.Key, params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	d.tables[table][pk] = updated
	return &dyn.UpdateItemOutput{Attributes: copyItem(updated)}, nil
}

func (d *Dynamo) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("BatchGetItem"); err != nil {
		return nil, err
	}
	out := &dyn.BatchGetItemOutput{
		Responses:       map[string][]map[string]types.AttributeValue{},
		UnprocessedKeys: map[string]types.KeysAndAttributes{},
	}
	for table, ka := range params.RequestItems {
		if len(ka.Keys) > 100 {
			return nil, fmt.Errorf("too many keys in batch: %d", len(ka.Keys))
		}
		var unprocessed []map[string]types.AttributeValue
		for _, key := range ka.Keys {
			if d.Unprocessed > 0 {
				d.Unprocessed--
				unprocessed = append(unprocessed, key)
				continue
			}
			pk, err := d.pkValue(table, key)
			if err != nil {
				return nil, err
			}
			if item, ok := d.tables[table][pk]; ok {
				out.Responses[table] = append(out.Responses[table], copyItem(item))
			}
		}
		if len(unprocessed) > 0 {
			out.UnprocessedKeys[table] = types.KeysAndAttributes{Keys: unprocessed}
		}
	}
	return out, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin("TransactWriteItems"); err != nil {
		return nil, err
	}
	if len(params.TransactItems) > 100 {
		return nil, fmt.Errorf("too many transact items: %d", len(params.TransactItems))
	}
	d.Transactions = append(d.Transactions, params)

	type write struct {
		table, pk string
		item      map[string]types.AttributeValue
	}
	var writes []write
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false

	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: awsString("None")}
		switch {
		case it.Put != nil:
			p := it.Put
			pk, err := d.pkValue(*p.TableName, p.Item)
			if err != nil {
				return nil, err
			}
			ok, err := evalCondition(p.ConditionExpression, p.ExpressionAttributeNames, p.ExpressionAttributeValues, d.tables[*p.TableName][pk])
			if err != nil {
				return nil, err
			}
			if !ok {
				failed = true
				reasons[i] = types.CancellationReason{Code: awsString("ConditionalCheckFailed")}
				continue
			}
			writes = append(writes, write{*p.TableName, pk, copyItem(p.Item)})
		case it.Update != nil:
			u := it.Update
			pk, err := d.pkValue(*u.TableName, u.Key)
			if err != nil {
				return nil, err
			}
			current := d.tables[*u.TableName][pk]
			ok, err := evalCondition(u.ConditionExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues, current)
			if err != nil {
				return nil, err
			}
			if !ok {
				failed = true
				reasons[i] = types.CancellationReason{Code: awsString("ConditionalCheckFailed")}
				continue
			}
			updated, err := applySet(current, u.Key, u.UpdateExpression, u.ExpressionAttributeNames, u.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{*u.TableName, pk, updated})
		default:
			return nil, errors.New("unsupported transact item")
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             awsString("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}
	for _, w := range writes {
		d.tables[w.table][w.pk] = w.item
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *Dynamo) pkValue(table string, item map[string]types.AttributeValue) (string, error) {
	attr, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing string key %q for table %q", attr, table)
	}
	return v.Value, nil
}

func evalCondition(expr *string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	if expr == nil || *expr == "" {
		return true, nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			name := resolveName(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_not_exists("), ")"), names)
			if _, ok := item[name]; ok {
				return false, nil
			}
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			name := resolveName(strings.TrimSuffix(strings.TrimPrefix(clause, "attribute_exists("), ")"), names)
			if _, ok := item[name]; !ok {
				return false, nil
			}
		case strings.Contains(clause, " = "):
			parts := strings.SplitN(clause, " = ", 2)
			name := resolveName(strings.TrimSpace(parts[0]), names)
			want, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("missing expression value %s", parts[1])
			}
			got, ok := item[name]
			if !ok || !reflect.DeepEqual(got, want) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported condition %q", clause)
		}
	}
	return true, nil
}

func applySet(current, key map[string]types.AttributeValue, expr *string, names map[string]string, values map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	out := copyItem(current)
	if out == nil {
		out = map[string]types.AttributeValue{}
	}
	for k, v := range key {
		out[k] = v
	}
	if expr == nil {
		return out, nil
	}
	body := strings.TrimSpace(*expr)
	if !strings.HasPrefix(body, "SET ") {
		return nil, fmt.Errorf("unsupported update expression %q", body)
	}
	for _, assign := range strings.Split(strings.TrimPrefix(body, "SET "), ",") {
		parts := strings.SplitN(assign, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad assignment %q", assign)
		}
		name := resolveName(strings.TrimSpace(parts[0]), names)
		v, ok := values[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, fmt.Errorf("missing expression value %s", parts[1])
		}
		out[name] = v
	}
	return out, nil
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if n, ok := names[name]; ok {
			return n
		}
	}
	return name
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func awsString(s string) *string { return &s }
