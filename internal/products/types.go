package products

import "time"

// Product is the item stored in the products DynamoDB table.
type Product struct {
	ID        string    `dynamodbav:"product_id" json:"id"` // PK
	Name      string    `dynamodbav:"name" json:"name"`
	Price     float64   `dynamodbav:"price" json:"price"`
	Quantity  int       `dynamodbav:"quantity" json:"quantity"` // available stock, >= 0
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// QuantityUpdate is the new stock level for one product.
type QuantityUpdate struct {
	ProductID string
	Quantity  int
}
