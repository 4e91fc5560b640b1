package orders

import "time"

// Order statuses
const (
	StatusPlaced    = "PLACED"
	StatusConfirmed = "CONFIRMED"
)

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	ID           string      `dynamodbav:"order_id" json:"id"` // PK
	CustomerID   string      `dynamodbav:"customer_id" json:"customer_id"`
	CustomerName string      `dynamodbav:"customer_name" json:"customer_name"`
	Status       string      `dynamodbav:"status" json:"status"` // PLACED | CONFIRMED
	Items        []OrderItem `dynamodbav:"items" json:"products"`
	Total        float64     `dynamodbav:"total" json:"total"`
	CreatedAt    time.Time   `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `dynamodbav:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order. Price is the unit price of the product
// when the order was placed.
type OrderItem struct {
	ProductID string  `dynamodbav:"product_id" json:"product_id"`
	Price     float64 `dynamodbav:"price" json:"price"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
}

// RequestedItem is a product and quantity asked for by the customer.
type RequestedItem struct {
	ProductID string
	Quantity  int
}

// CreatedMessage is the payload sent API -> SQS -> worker after an order is stored.
type CreatedMessage struct {
	OrderID    string  `json:"order_id"`
	CustomerID string  `json:"customer_id"`
	Total      float64 `json:"total"`
	Units      int     `json:"units"`
}

// Units returns the total quantity across all items.
func (o *Order) Units() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
