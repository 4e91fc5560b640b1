package validation

// ProductLine is one requested product in an order.
type ProductLine struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"` // must be >= 1
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	CustomerID string        `json:"customer_id" validate:"required"`
	Products   []ProductLine `json:"products" validate:"required,min=1,dive"` // at least one product
}

// ProductRequest is the payload for POST /products and PUT /products/:id.
// Pointers distinguish a missing field from an explicit zero.
type ProductRequest struct {
	Name     string   `json:"name" validate:"required,max=200"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	Quantity *int     `json:"quantity" validate:"required,gte=0"`
}

// CreateCustomerRequest is the payload for POST /customers
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}
