package orders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/apperr"
	"github.com/imrishuroy/go-stockorders/internal/customers"
	"github.com/imrishuroy/go-stockorders/internal/products"
)

// CustomerFinder resolves customers by id. A missing customer is (nil, nil).
type CustomerFinder interface {
	FindByID(ctx context.Context, id string) (*customers.Customer, error)
}

// ProductStock resolves products in bulk and writes back new stock levels.
type ProductStock interface {
	FindAllByID(ctx context.Context, ids []string) ([]products.Product, error)
	UpdateQuantities(ctx context.Context, updates []products.QuantityUpdate) error
}

// Repository persists orders. A missing order is (nil, nil).
type Repository interface {
	Create(ctx context.Context, customer customers.Customer, items []OrderItem) (*Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)
}

// EventPublisher announces stored orders to downstream consumers.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *Order) error
}

// MetricsRecorder receives business counters.
type MetricsRecorder interface {
	OrderPlaced(ctx context.Context, units int) error
	OrderRejected(ctx context.Context, reason string) error
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPublisher sets the publisher notified after each stored order.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the recorder for placed/rejected counters.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// Service places and reads orders.
type Service struct {
	customers CustomerFinder
	products  ProductStock
	orders    Repository
	publisher EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewService(c CustomerFinder, p ProductStock, o Repository, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		customers: c,
		products:  p,
		orders:    o,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder validates the request against current stock, decrements stock
// for every requested product and stores the order with snapshot prices.
//
// Nothing is written unless every check passes. Stock is read and written
// without a lock, so two concurrent orders for the same product can both
// pass validation against the same stale quantity.
func (s *Service) CreateOrder(ctx context.Context, customerID string, items []RequestedItem) (*Order, error) {
	order, err := s.createOrder(ctx, customerID, items)
	if err != nil {
		if kind := apperr.KindOf(err); kind != apperr.KindUnknown {
			s.logger.Info("order rejected",
				zap.String("customer_id", customerID),
				zap.String("reason", apperr.Code(err)),
				zap.Error(err))
			s.recordRejected(ctx, apperr.Code(err))
		}
		return nil, err
	}
	return order, nil
}

func (s *Service) createOrder(ctx context.Context, customerID string, items []RequestedItem) (*Order, error) {
	ids, dups, err := requestedIDs(items)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customer == nil {
		return nil, &apperr.CustomerNotFoundError{CustomerID: customerID}
	}

	found, err := s.products.FindAllByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	byID := make(map[string]products.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	// every line must resolve to its own product
	if len(byID) != len(items) {
		return nil, &apperr.ProductSetMismatchError{Requested: ids, Missing: missing(ids, byID), Duplicated: dups}
	}

	updates := make([]products.QuantityUpdate, 0, len(items))
	lines := make([]OrderItem, 0, len(items))
	for _, it := range items {
		p := byID[it.ProductID]
		if it.Quantity > p.Quantity {
			return nil, &apperr.InsufficientStockError{
				CustomerID:   customer.ID,
				CustomerName: customer.Name,
				ProductID:    p.ID,
				ProductName:  p.Name,
				Requested:    it.Quantity,
				Available:    p.Quantity,
			}
		}
		updates = append(updates, products.QuantityUpdate{ProductID: p.ID, Quantity: p.Quantity - it.Quantity})
		lines = append(lines, OrderItem{ProductID: p.ID, Price: p.Price, Quantity: it.Quantity})
	}

	if err := s.products.UpdateQuantities(ctx, updates); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	order, err := s.orders.Create(ctx, *customer, lines)
	if err != nil {
		s.logger.Error("order not stored after stock was decremented",
			zap.String("customer_id", customer.ID),
			zap.Any("stock_updates", updates),
			zap.Error(err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", customer.ID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", order.Total))

	s.afterCreate(ctx, order)
	return order, nil
}

// afterCreate publishes and records the order. Failures here never fail the
// request: the order and stock change are already stored.
func (s *Service) afterCreate(ctx context.Context, order *Order) {
	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.Warn("publish order created failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	if s.metrics != nil {
		if err := s.metrics.OrderPlaced(ctx, order.Units()); err != nil {
			s.logger.Warn("record order placed failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
}

func (s *Service) recordRejected(ctx context.Context, reason string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.OrderRejected(ctx, reason); err != nil {
		s.logger.Warn("record order rejected failed", zap.Error(err))
	}
}

// GetOrder returns the order or an OrderNotFoundError.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, &apperr.OrderNotFoundError{OrderID: orderID}
	}
	return o, nil
}

// requestedIDs checks the request shape and returns the distinct product ids
// in request order, plus the ids that appear on more than one line.
func requestedIDs(items []RequestedItem) (ids, dups []string, err error) {
	if len(items) == 0 {
		return nil, nil, &apperr.InvalidRequestError{Field: "products", Reason: "at least one product is required"}
	}
	ids = make([]string, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return nil, nil, &apperr.InvalidRequestError{Field: "products.id", Reason: "product id is required"}
		}
		if it.Quantity <= 0 {
			return nil, nil, &apperr.InvalidRequestError{Field: "products.quantity", Reason: fmt.Sprintf("quantity for %s must be positive", it.ProductID)}
		}
		seen[it.ProductID]++
		switch seen[it.ProductID] {
		case 1:
			ids = append(ids, it.ProductID)
		case 2:
			dups = append(dups, it.ProductID)
		}
	}
	return ids, dups, nil
}

func missing(ids []string, found map[string]products.Product) []string {
	var out []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
