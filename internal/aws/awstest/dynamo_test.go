package awstest

import (
	"context"
	"errors"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) *types.AttributeValueMemberS { return &types.AttributeValueMemberS{Value: v} }

func TestDynamo_PutConditionAndGet(t *testing.T) {
	d := NewDynamo(map[string]string{"t": "id"})
	ctx := context.Background()
	table := "t"
	cond := "attribute_not_exists(id)"

	_, err := d.PutItem(ctx, &dyn.PutItemInput{TableName: &table, Item: map[string]types.AttributeValue{"id": s("a")}, ConditionExpression: &cond})
	require.NoError(t, err)

	_, err = d.PutItem(ctx, &dyn.PutItemInput{TableName: &table, Item: map[string]types.AttributeValue{"id": s("a")}, ConditionExpression: &cond})
	var ccf *types.ConditionalCheckFailedException
	require.True(t, errors.As(err, &ccf))

	out, err := d.GetItem(ctx, &dyn.GetItemInput{TableName: &table, Key: map[string]types.AttributeValue{"id": s("a")}})
	require.NoError(t, err)
	assert.Equal(t, "a", out.Item["id"].(*types.AttributeValueMemberS).Value)
}

func TestDynamo_TransactIsAllOrNothing(t *testing.T) {
	d := NewDynamo(map[string]string{"t": "id"})
	d.Seed("t", map[string]types.AttributeValue{"id": s("a"), "v": s("1")})
	table := "t"
	expr := "SET v = :v"
	cond := "attribute_exists(id)"

	_, err := d.TransactWriteItems(context.Background(), &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{TableName: &table, Key: map[string]types.AttributeValue{"id": s("a")}, UpdateExpression: &expr, ConditionExpression: &cond, ExpressionAttributeValues: map[string]types.AttributeValue{":v": s("2")}}},
			{Update: &types.Update{TableName: &table, Key: map[string]types.AttributeValue{"id": s("missing")}, UpdateExpression: &expr, ConditionExpression: &cond, ExpressionAttributeValues: map[string]types.AttributeValue{":v": s("2")}}},
		},
	})
	var tce *types.TransactionCanceledException
	require.True(t, errors.As(err, &tce))
	assert.Equal(t, "1", d.Item("t", "a")["v"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, 1, d.Len("t"))
}

func TestDynamo_BatchGetUnprocessed(t *testing.T) {
	d := NewDynamo(map[string]string{"t": "id"})
	d.Seed("t", map[string]types.AttributeValue{"id": s("a")})
	d.Seed("t", map[string]types.AttributeValue{"id": s("b")})
	d.Unprocessed = 1

	out, err := d.BatchGetItem(context.Background(), &dyn.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			"t": {Keys: []map[string]types.AttributeValue{{"id": s("a")}, {"id": s("b")}, {"id": s("c")}}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, out.Responses["t"], 1)
	assert.Len(t, out.UnprocessedKeys["t"].Keys, 1)
}
