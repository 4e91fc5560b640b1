package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/aws"
	"github.com/imrishuroy/go-stockorders/internal/config"
	"github.com/imrishuroy/go-stockorders/internal/logging"
	"github.com/imrishuroy/go-stockorders/internal/orders"
	"github.com/imrishuroy/go-stockorders/internal/worker"
)

func main() {
	cfg, err := config.Load(config.New())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.RunLocal)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	processor := worker.NewProcessor(orders.NewStore(clients.DynamoDB, cfg.OrdersTable), logger)

	// RUN_LOCAL=true processes a single synthetic event and exits.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			logger.Fatal("LOCAL_SQS_BODY must hold an order.created message when RUN_LOCAL=true")
		}
		resp, err := processor.Handle(ctx, events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local handler failed", zap.Error(err))
		}
		return
	}

	lambda.Start(processor.Handle)
}
