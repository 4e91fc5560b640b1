package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/aws"
	"github.com/imrishuroy/go-stockorders/internal/config"
	"github.com/imrishuroy/go-stockorders/internal/customers"
	"github.com/imrishuroy/go-stockorders/internal/handlers"
	"github.com/imrishuroy/go-stockorders/internal/idempotency"
	"github.com/imrishuroy/go-stockorders/internal/logging"
	"github.com/imrishuroy/go-stockorders/internal/orders"
	"github.com/imrishuroy/go-stockorders/internal/products"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:          "api",
		Short:        "Customer, product and order HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if cfg.RunLocal {
				return runServe(cmd.Context(), cfg)
			}
			return runLambda(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run a local HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	serve.Flags().String("addr", "", "listen address")
	_ = v.BindPFlag("http_addr", serve.Flags().Lookup("addr"))

	lambdaCmd := &cobra.Command{
		Use:   "lambda",
		Short: "Serve API Gateway proxy events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runLambda(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serve, lambdaCmd)
	return root
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	r, err := buildRouter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("running local server", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		return fmt.Errorf("failed to run local server: %w", err)
	}
	return nil
}

func runLambda(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(gin.ReleaseMode)
	r, err := buildRouter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
	return nil
}

// buildRouter wires the AWS clients, stores and services behind the router.
func buildRouter(ctx context.Context, cfg config.Config, logger *zap.Logger) (*gin.Engine, error) {
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init aws clients: %w", err)
	}
	return newRouter(cfg, clients, logger), nil
}

func newRouter(cfg config.Config, clients *aws.AWSClients, logger *zap.Logger) *gin.Engine {
	customerStore := customers.NewStore(clients.DynamoDB, cfg.CustomersTable)
	productStore := products.NewStore(clients.DynamoDB, cfg.ProductsTable)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)

	opts := []orders.Option{
		orders.WithMetrics(aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)),
	}
	if cfg.QueueURL != "" {
		opts = append(opts, orders.WithPublisher(orders.NewSQSNotifier(aws.NewPublisher(clients.SQS, cfg.QueueURL))))
	} else {
		logger.Warn("ORDERS_QUEUE_URL not set; order.created messages are disabled")
	}

	return handlers.NewRouter(handlers.HandlerConfig{
		Customers:   customers.NewService(customerStore, logger),
		Products:    products.NewService(productStore, logger),
		Orders:      orders.NewService(customerStore, productStore, orderStore, logger, opts...),
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Logger:      logger,
	})
}
