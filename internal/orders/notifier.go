package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imrishuroy/go-stockorders/internal/aws"
)

// SQSNotifier publishes CreatedMessage payloads through an SQS publisher.
type SQSNotifier struct {
	publisher *aws.Publisher
}

func NewSQSNotifier(p *aws.Publisher) *SQSNotifier {
	return &SQSNotifier{publisher: p}
}

// PublishOrderCreated sends the order.created message for order.
func (n *SQSNotifier) PublishOrderCreated(ctx context.Context, order *Order) error {
	body, err := json.Marshal(CreatedMessage{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
		Units:      order.Units(),
	})
	if err != nil {
		return fmt.Errorf("marshal order created: %w", err)
	}

	attrs := map[string]string{
		"event_type":  "order.created",
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
	}
	return n.publisher.SendOrderMessage(ctx, string(body), attrs)
}
