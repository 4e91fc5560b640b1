package customers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/apperr"
)

// Repository is the persistence the customer service depends on.
type Repository interface {
	Create(ctx context.Context, c Customer) (*Customer, error)
	FindByID(ctx context.Context, id string) (*Customer, error)
}

// Service implements customer registration and lookup.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create registers a new customer under a fresh id.
func (s *Service) Create(ctx context.Context, name, email string) (*Customer, error) {
	c, err := s.repo.Create(ctx, Customer{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.logger.Info("customer created", zap.String("customer_id", c.ID))
	return c, nil
}

// Get returns the customer or a CustomerNotFoundError.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if c == nil {
		return nil, &apperr.CustomerNotFoundError{CustomerID: id}
	}
	return c, nil
}
