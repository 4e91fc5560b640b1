package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/apperr"
)

// Repository is the persistence the product service depends on.
type Repository interface {
	Create(ctx context.Context, p Product) (*Product, error)
	Save(ctx context.Context, p Product) (*Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
}

// Service implements product creation and updates.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create stores a new product under a fresh id.
func (s *Service) Create(ctx context.Context, name string, price float64, quantity int) (*Product, error) {
	p, err := s.repo.Create(ctx, Product{
		ID:       uuid.NewString(),
		Name:     name,
		Price:    price,
		Quantity: quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.Int("quantity", p.Quantity))
	return p, nil
}

// Update overwrites name, price and quantity of an existing product.
func (s *Service) Update(ctx context.Context, id, name string, price float64, quantity int) (*Product, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.Name = name
	next.Price = price
	next.Quantity = quantity

	saved, err := s.repo.Save(ctx, next)
	if errors.Is(err, ErrNotFound) {
		// deleted between load and save
		return nil, &apperr.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}

	s.logger.Info("product updated",
		zap.String("product_id", id),
		zap.Int("quantity", saved.Quantity))
	return saved, nil
}

// Get returns the product or a ProductNotFoundError.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if p == nil {
		return nil, &apperr.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}
