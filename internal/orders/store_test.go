package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-stockorders/internal/aws/awstest"
	"github.com/imrishuroy/go-stockorders/internal/customers"
)

func newTestStore() (*Store, *awstest.Dynamo) {
	mock := awstest.NewDynamo(map[string]string{"orders": "order_id"})
	store := NewStore(mock, "orders")
	store.newID = func() string { return "order-1" }
	return store, mock
}

func TestCreate_StoresPlacedOrder(t *testing.T) {
	store, mock := newTestStore()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	order, err := store.Create(context.Background(),
		customers.Customer{ID: "cust-1", Name: "Ada"},
		[]OrderItem{{ProductID: "p1", Price: 5.0, Quantity: 3}, {ProductID: "p2", Price: 0.1, Quantity: 3}},
	)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if order.ID != "order-1" || order.Status != StatusPlaced {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Total != 15.3 {
		t.Fatalf("expected total 15.3, got %v", order.Total)
	}

	item := mock.Item("orders", "order-1")
	if item == nil {
		t.Fatalf("order item not stored")
	}
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusPlaced {
		t.Fatalf("status not stored, got %+v", item["status"])
	}

	got, err := store.Get(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got.Items) != 2 || got.Items[0].ProductID != "p1" || got.Items[0].Quantity != 3 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CustomerName != "Ada" || !got.CreatedAt.Equal(now) {
		t.Fatalf("customer or timestamp mismatch: %+v", got)
	}
}

func TestCreate_DoesNotAliasItems(t *testing.T) {
	store, _ := newTestStore()
	items := []OrderItem{{ProductID: "p1", Price: 1, Quantity: 1}}

	order, err := store.Create(context.Background(), customers.Customer{ID: "c"}, items)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	items[0].Quantity = 99
	if order.Items[0].Quantity != 1 {
		t.Fatalf("order items alias caller slice")
	}
}

func TestGet_Missing(t *testing.T) {
	store, _ := newTestStore()

	got, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil order, got %+v", got)
	}
}

func TestUpdateStatus_Condition_SuccessAndFail(t *testing.T) {
	store, _ := newTestStore()
	if _, err := store.Create(context.Background(), customers.Customer{ID: "c10"}, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	// success: PLACED -> CONFIRMED
	err := store.UpdateStatus(context.Background(), "order-1", StatusPlaced, StatusConfirmed)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// failure: current status is CONFIRMED
	err = store.UpdateStatus(context.Background(), "order-1", StatusPlaced, StatusConfirmed)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}

	// missing order never matches
	err = store.UpdateStatus(context.Background(), "ghost", StatusPlaced, StatusConfirmed)
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch for missing order, got %v", err)
	}

	got, _ := store.Get(context.Background(), "order-1")
	if got.Status != StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", got.Status)
	}
}
