package products

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-stockorders/internal/aws"
)

// DynamoDB limits for a single BatchGetItem / TransactWriteItems request.
const (
	maxBatchGetKeys   = 100
	maxTransactItems  = 100
	maxBatchGetRounds = 5
)

var (
	// ErrAlreadyExists is returned by Create when the product id is taken.
	ErrAlreadyExists = errors.New("product already exists")
	// ErrNotFound is returned by Save and UpdateQuantities for unknown ids.
	ErrNotFound = errors.New("product does not exist")
)

// Store encapsulates operations on the products table.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	nowFunc    func() time.Time
	retryDelay time.Duration
}

// NewStore creates a new products Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		nowFunc:    time.Now,
		retryDelay: 50 * time.Millisecond,
	}
}

// Create persists a new product. Timestamps are set by the store.
func (s *Store) Create(ctx context.Context, p Product) (*Product, error) {
	now := s.nowFunc().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(product_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("put item: %w", err)
	}
	return &p, nil
}

// Save overwrites an existing product and bumps UpdatedAt.
func (s *Store) Save(ctx context.Context, p Product) (*Product, error) {
	p.UpdatedAt = s.nowFunc().UTC()

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_exists(product_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("put item: %w", err)
	}
	return &p, nil
}

// FindByID fetches a product by id. Returns (nil, nil) if not found.
func (s *Store) FindByID(ctx context.Context, id string) (*Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       productKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Product
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}

// FindAllByID returns the products that exist among ids, in no particular
// order. Duplicate ids are looked up once.
func (s *Store) FindAllByID(ctx context.Context, ids []string) ([]Product, error) {
	seen := make(map[string]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, productKey(id))
	}

	var found []Product
	for start := 0; start < len(keys); start += maxBatchGetKeys {
		end := min(start+maxBatchGetKeys, len(keys))
		items, err := s.batchGet(ctx, keys[start:end])
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var p Product
			if err := attributevalue.UnmarshalMap(item, &p); err != nil {
				return nil, fmt.Errorf("unmarshal product: %w", err)
			}
			found = append(found, p)
		}
	}
	return found, nil
}

func (s *Store) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pending := keys
	for round := 0; len(pending) > 0; round++ {
		if round == maxBatchGetRounds {
			return nil, fmt.Errorf("batch get item: %d keys still unprocessed after %d rounds", len(pending), round)
		}
		if round > 0 && s.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(round) * s.retryDelay):
			}
		}

		out, err := s.client.BatchGetItem(ctx, &dyn.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.tableName: {Keys: pending, ConsistentRead: awsBool(true)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("batch get item: %w", err)
		}
		items = append(items, out.Responses[s.tableName]...)
		pending = out.UnprocessedKeys[s.tableName].Keys
	}
	return items, nil
}

// UpdateQuantities sets the stock of every product in updates. Each group of
// up to 100 updates is written in one transaction; a transaction fails as a
// whole when any product in it no longer exists.
func (s *Store) UpdateQuantities(ctx context.Context, updates []QuantityUpdate) error {
	now := s.nowFunc().UTC().Format(time.RFC3339Nano)
	for start := 0; start < len(updates); start += maxTransactItems {
		end := min(start+maxTransactItems, len(updates))

		items := make([]types.TransactWriteItem, 0, end-start)
		for _, u := range updates[start:end] {
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:           &s.tableName,
					Key:                 productKey(u.ProductID),
					UpdateExpression:    awsString("SET quantity = :q, updated_at = :ua"),
					ConditionExpression: awsString("attribute_exists(product_id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":q":  &types.AttributeValueMemberN{Value: strconv.Itoa(u.Quantity)},
						":ua": &types.AttributeValueMemberS{Value: now},
					},
				},
			})
		}

		_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
		if err != nil {
			var tce *types.TransactionCanceledException
			if errors.As(err, &tce) {
				return fmt.Errorf("update quantities: %w", ErrNotFound)
			}
			return fmt.Errorf("transact write: %w", err)
		}
	}
	return nil
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: id},
	}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
