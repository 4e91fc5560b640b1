package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/apperr"
	"github.com/imrishuroy/go-stockorders/internal/aws/awstest"
	"github.com/imrishuroy/go-stockorders/internal/customers"
	"github.com/imrishuroy/go-stockorders/internal/products"
)

type fakePublisher struct {
	mu     sync.Mutex
	orders []*Order
	err    error
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return f.err
}

type fakeMetrics struct {
	placed   []int
	rejected []string
}

func (f *fakeMetrics) OrderPlaced(ctx context.Context, units int) error {
	f.placed = append(f.placed, units)
	return nil
}

func (f *fakeMetrics) OrderRejected(ctx context.Context, reason string) error {
	f.rejected = append(f.rejected, reason)
	return nil
}

type fixture struct {
	db        *awstest.Dynamo
	products  *products.Store
	publisher *fakePublisher
	metrics   *fakeMetrics
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := awstest.NewDynamo(map[string]string{
		"customers": "customer_id",
		"products":  "product_id",
		"orders":    "order_id",
	})
	productStore := products.NewStore(db, "products")
	pub := &fakePublisher{}
	m := &fakeMetrics{}
	svc := NewService(
		customers.NewStore(db, "customers"),
		productStore,
		NewStore(db, "orders"),
		zap.NewNop(),
		WithPublisher(pub),
		WithMetrics(m),
	)

	f := &fixture{db: db, products: productStore, publisher: pub, metrics: m, svc: svc}
	f.seedCustomer(t, customers.Customer{ID: "C1", Name: "Ada"})
	f.seedProduct(t, products.Product{ID: "P1", Name: "Keyboard", Price: 5.0, Quantity: 10})
	f.seedProduct(t, products.Product{ID: "P3", Name: "Mouse", Price: 2.5, Quantity: 4})
	return f
}

func (f *fixture) seedCustomer(t *testing.T, c customers.Customer) {
	item, err := attributevalue.MarshalMap(c)
	require.NoError(t, err)
	f.db.Seed("customers", item)
}

func (f *fixture) seedProduct(t *testing.T, p products.Product) {
	item, err := attributevalue.MarshalMap(p)
	require.NoError(t, err)
	f.db.Seed("products", item)
}

func (f *fixture) stock(t *testing.T, id string) int {
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func TestCreateOrder_DecrementsStockAndSnapshotsPrice(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{{ProductID: "P1", Quantity: 3}})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, OrderItem{ProductID: "P1", Price: 5.0, Quantity: 3}, order.Items[0])
	assert.Equal(t, "C1", order.CustomerID)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, 15.0, order.Total)
	assert.Equal(t, 7, f.stock(t, "P1"))

	stored, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Items, stored.Items)

	require.Len(t, f.publisher.orders, 1)
	assert.Equal(t, order.ID, f.publisher.orders[0].ID)
	assert.Equal(t, []int{3}, f.metrics.placed)
}

func TestCreateOrder_MultipleItemsKeepRequestOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{
		{ProductID: "P3", Quantity: 4},
		{ProductID: "P1", Quantity: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, []OrderItem{
		{ProductID: "P3", Price: 2.5, Quantity: 4},
		{ProductID: "P1", Price: 5.0, Quantity: 10},
	}, order.Items)
	assert.Equal(t, 0, f.stock(t, "P3"))
	assert.Equal(t, 0, f.stock(t, "P1"))
	assert.Equal(t, 1, f.db.Calls["TransactWriteItems"])
}

func TestCreateOrder_PriceIsSnapshot(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{{ProductID: "P1", Quantity: 1}})
	require.NoError(t, err)

	p, err := f.products.FindByID(context.Background(), "P1")
	require.NoError(t, err)
	p.Price = 99
	_, err = f.products.Save(context.Background(), *p)
	require.NoError(t, err)

	stored, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored.Items[0].Price)
}

func TestCreateOrder_CustomerNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), "nobody", []RequestedItem{{ProductID: "P1", Quantity: 1}})

	var nf *apperr.CustomerNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nobody", nf.CustomerID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, f.db.Calls["TransactWriteItems"])
	assert.Zero(t, f.db.Calls["BatchGetItem"])
	assert.Equal(t, 10, f.stock(t, "P1"))
	assert.Equal(t, []string{"customer_not_found"}, f.metrics.rejected)
	assert.Empty(t, f.publisher.orders)
}

func TestCreateOrder_ProductSetMismatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P2", Quantity: 1},
	})

	var mismatch *apperr.ProductSetMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"P2"}, mismatch.Missing)
	assert.Equal(t, []string{"P1", "P2"}, mismatch.Requested)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, f.db.Calls["TransactWriteItems"])
	assert.Equal(t, 10, f.stock(t, "P1"))
	assert.Zero(t, f.db.Len("orders"))
}

func TestCreateOrder_RepeatedProductIsMismatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P3", Quantity: 1},
		{ProductID: "P1", Quantity: 2},
	})

	var mismatch *apperr.ProductSetMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Empty(t, mismatch.Missing)
	assert.Equal(t, []string{"P1"}, mismatch.Duplicated)
	assert.Equal(t, []string{"P1", "P3"}, mismatch.Requested)
	assert.Zero(t, f.db.Calls["TransactWriteItems"])
	assert.Equal(t, 10, f.stock(t, "P1"))
	assert.Equal(t, []string{"product_set_mismatch"}, f.metrics.rejected)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{{ProductID: "P1", Quantity: 15}})

	var stock *apperr.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "Ada", stock.CustomerName)
	assert.Equal(t, "Keyboard", stock.ProductName)
	assert.Equal(t, 15, stock.Requested)
	assert.Equal(t, 10, stock.Available)
	assert.Equal(t, 10, f.stock(t, "P1"))
	assert.Zero(t, f.db.Len("orders"))
}

func TestCreateOrder_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P3", Quantity: 5},
	})

	var stock *apperr.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "P3", stock.ProductID)
	assert.Equal(t, 10, f.stock(t, "P1"))
	assert.Equal(t, 4, f.stock(t, "P3"))
	assert.Zero(t, f.db.Calls["TransactWriteItems"])
}

func TestCreateOrder_InvalidRequests(t *testing.T) {
	tests := []struct {
		name  string
		items []RequestedItem
	}{
		{"empty", nil},
		{"zero quantity", []RequestedItem{{ProductID: "P1", Quantity: 0}}},
		{"negative quantity", []RequestedItem{{ProductID: "P1", Quantity: -1}}},
		{"blank id", []RequestedItem{{ProductID: "", Quantity: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.CreateOrder(context.Background(), "C1", tt.items)

			var invalid *apperr.InvalidRequestError
			require.ErrorAs(t, err, &invalid)
			assert.Zero(t, f.db.Calls["GetItem"])
			assert.Equal(t, 10, f.stock(t, "P1"))
		})
	}
}

func TestCreateOrder_PublishFailureStillReturnsOrder(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("queue down")

	order, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{{ProductID: "P1", Quantity: 1}})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, 9, f.stock(t, "P1"))
}

func TestCreateOrder_InfrastructureErrorIsNotBusinessError(t *testing.T) {
	f := newFixture(t)
	f.db.Errs["BatchGetItem"] = errors.New("throttled")

	_, err := f.svc.CreateOrder(context.Background(), "C1", []RequestedItem{{ProductID: "P1", Quantity: 1}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
	assert.Empty(t, f.metrics.rejected)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetOrder(context.Background(), "missing")
	var nf *apperr.OrderNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.OrderID)
}
