package customers

import "time"

// Customer is the item stored in the customers DynamoDB table.
type Customer struct {
	ID        string    `dynamodbav:"customer_id" json:"id"` // PK
	Name      string    `dynamodbav:"name" json:"name"`
	Email     string    `dynamodbav:"email,omitempty" json:"email,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
}
