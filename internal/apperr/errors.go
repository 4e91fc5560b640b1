// Package apperr defines the business errors returned by the services.
//
// Every error carries one of two kinds, NotFound or Validation, plus the
// structured context needed to render it. Callers match kinds with
// errors.Is(err, ErrNotFound) / errors.Is(err, ErrValidation) and the concrete
// context with errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a business error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// Kind sentinels, matched by every typed error of that kind.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

type kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

func matchKind(k Kind, target error) bool {
	switch target {
	case ErrNotFound:
		return k == KindNotFound
	case ErrValidation:
		return k == KindValidation
	}
	return false
}

// CustomerNotFoundError is returned when a customer id does not resolve.
type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer not found: id=%s", e.CustomerID)
}

func (e *CustomerNotFoundError) Kind() Kind { return KindNotFound }

func (e *CustomerNotFoundError) Is(target error) bool {
	if _, ok := target.(*CustomerNotFoundError); ok {
		return true
	}
	return matchKind(e.Kind(), target)
}

// ProductNotFoundError is returned when a single product id does not resolve.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%s", e.ProductID)
}

func (e *ProductNotFoundError) Kind() Kind { return KindNotFound }

func (e *ProductNotFoundError) Is(target error) bool {
	if _, ok := target.(*ProductNotFoundError); ok {
		return true
	}
	return matchKind(e.Kind(), target)
}

// OrderNotFoundError is returned when an order id does not resolve.
type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: id=%s", e.OrderID)
}

func (e *OrderNotFoundError) Kind() Kind { return KindNotFound }

func (e *OrderNotFoundError) Is(target error) bool {
	if _, ok := target.(*OrderNotFoundError); ok {
		return true
	}
	return matchKind(e.Kind(), target)
}

// ProductSetMismatchError is returned when the resolved products do not line
// up one-to-one with the requested lines: an id is absent or listed more
// than once. The whole request is rejected.
type ProductSetMismatchError struct {
	Requested  []string
	Missing    []string
	Duplicated []string
}

func (e *ProductSetMismatchError) Error() string {
	msg := fmt.Sprintf("one or more products were not found: missing=[%s]", strings.Join(e.Missing, ","))
	if len(e.Duplicated) > 0 {
		msg += fmt.Sprintf(" duplicated=[%s]", strings.Join(e.Duplicated, ","))
	}
	return msg
}

func (e *ProductSetMismatchError) Kind() Kind { return KindValidation }

func (e *ProductSetMismatchError) Is(target error) bool {
	if _, ok := target.(*ProductSetMismatchError); ok {
		return true
	}
	return matchKind(e.Kind(), target)
}

// InsufficientStockError is returned when a requested quantity exceeds the
// product's available quantity.
type InsufficientStockError struct {
	CustomerID   string
	CustomerName string
	ProductID    string
	ProductName  string
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("sorry, %s, we don't have enough stock for %s, you requested: %d. we only have: %d",
		e.CustomerName, e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Kind() Kind { return KindValidation }

func (e *InsufficientStockError) Is(target error) bool {
	if _, ok := target.(*InsufficientStockError); ok {
		return true
	}
	return matchKind(e.Kind(), target)
}

// InvalidRequestError is returned when an input fails a service-level check.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: field=%s, reason=%s", e.Field, e.Reason)
}

func (e *InvalidRequestError) Kind() Kind { return KindValidation }

func (e *InvalidRequestError) Is(target error) bool {
	if _, ok := target.(*InvalidRequestError); ok {
		return true
	}
	return matchKind(e.Kind(), target)
}

// Code returns a short machine-readable code for err, suitable for API
// responses and metric dimensions.
func Code(err error) string {
	switch {
	case errors.Is(err, &CustomerNotFoundError{}):
		return "customer_not_found"
	case errors.Is(err, &ProductNotFoundError{}):
		return "product_not_found"
	case errors.Is(err, &OrderNotFoundError{}):
		return "order_not_found"
	case errors.Is(err, &ProductSetMismatchError{}):
		return "product_set_mismatch"
	case errors.Is(err, &InsufficientStockError{}):
		return "insufficient_stock"
	case errors.Is(err, &InvalidRequestError{}):
		return "invalid_request"
	}
	return "internal_error"
}
