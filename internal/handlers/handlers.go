// Package handlers exposes the customer, product and order services over HTTP.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/customers"
	"github.com/imrishuroy/go-stockorders/internal/idempotency"
	"github.com/imrishuroy/go-stockorders/internal/orders"
	"github.com/imrishuroy/go-stockorders/internal/products"
)

// OrderService places and reads orders.
type OrderService interface {
	CreateOrder(ctx context.Context, customerID string, items []orders.RequestedItem) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

// ProductService creates, updates and reads products.
type ProductService interface {
	Create(ctx context.Context, name string, price float64, quantity int) (*products.Product, error)
	Update(ctx context.Context, id, name string, price float64, quantity int) (*products.Product, error)
	Get(ctx context.Context, id string) (*products.Product, error)
}

// CustomerService registers and reads customers.
type CustomerService interface {
	Create(ctx context.Context, name, email string) (*customers.Customer, error)
	Get(ctx context.Context, id string) (*customers.Customer, error)
}

// IdempotencyStore tracks Idempotency-Key headers on POST /orders.
type IdempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key, requestHash string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.IdempotencyRecord, error)
	Reclaim(ctx context.Context, key string) (bool, error)
	MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// HandlerConfig groups dependencies for the handlers. Idempotency may be nil,
// in which case the Idempotency-Key header is ignored.
type HandlerConfig struct {
	Orders      OrderService
	Products    ProductService
	Customers   CustomerService
	Idempotency IdempotencyStore
	Logger      *zap.Logger
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterCustomersRoutes(r, cfg)
	RegisterProductsRoutes(r, cfg)
	RegisterOrdersRoutes(r, cfg)

	return r
}
