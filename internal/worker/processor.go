// Package worker consumes order.created messages and confirms orders.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/orders"
)

// OrderStore is the subset of the orders store the processor needs.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
}

// Processor handles SQS messages and performs order lifecycle transitions.
type Processor struct {
	orderStore OrderStore
	logger     *zap.Logger
}

// NewProcessor creates a new worker processor.
func NewProcessor(store OrderStore, logger *zap.Logger) *Processor {
	return &Processor{
		orderStore: store,
		logger:     logger,
	}
}

// Handle processes every record of the batch and reports the ones that
// failed so only those are redelivered (ReportBatchItemFailures).
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("worker error",
				zap.String("message_id", rec.MessageId),
				zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg orders.CreatedMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.OrderID == "" {
		return errors.New("message has no order_id")
	}

	log := p.logger.With(zap.String("order_id", msg.OrderID), zap.String("customer_id", msg.CustomerID))
	log.Info("received order created")

	order, err := p.orderStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	err = p.orderStore.UpdateStatus(ctx, msg.OrderID, orders.StatusPlaced, orders.StatusConfirmed)
	if errors.Is(err, orders.ErrStatusMismatch) {
		// duplicate delivery or a competing worker
		current, gerr := p.orderStore.Get(ctx, msg.OrderID)
		if gerr != nil {
			return fmt.Errorf("failed to re-read order: %w", gerr)
		}
		if current != nil && current.Status == orders.StatusConfirmed {
			log.Info("order already confirmed")
			return nil
		}
		status := "<missing>"
		if current != nil {
			status = current.Status
		}
		return fmt.Errorf("unexpected status for order=%s: %s", msg.OrderID, status)
	}
	if err != nil {
		return fmt.Errorf("failed to update status to CONFIRMED: %w", err)
	}

	log.Info("order confirmed", zap.Int("units", msg.Units))
	return nil
}
