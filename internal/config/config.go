// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the API and worker read at startup.
type Config struct {
	AWSRegion        string        `mapstructure:"aws_region"`
	AWSEndpoint      string        `mapstructure:"aws_endpoint_override"`
	CustomersTable   string        `mapstructure:"customers_table"`
	ProductsTable    string        `mapstructure:"products_table"`
	OrdersTable      string        `mapstructure:"orders_table"`
	IdempotencyTable string        `mapstructure:"idempotency_table"`
	QueueURL         string        `mapstructure:"orders_queue_url"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`
	IdempotencyTTL   time.Duration `mapstructure:"idempotency_ttl"`
	HTTPAddr         string        `mapstructure:"http_addr"`
	LogLevel         string        `mapstructure:"log_level"`
	RunLocal         bool          `mapstructure:"run_local"`
}

var defaults = map[string]any{
	"aws_region":            "us-east-1",
	"aws_endpoint_override": "",
	"customers_table":       "customers",
	"products_table":        "products",
	"orders_table":          "orders",
	"idempotency_table":     "idempotency",
	"orders_queue_url":      "",
	"metrics_namespace":     "",
	"idempotency_ttl":       "48h",
	"http_addr":             ":8080",
	"log_level":             "info",
	"run_local":             false,
}

// New returns a viper instance bound to the environment with defaults set.
// Keys are the lower-case form of the environment variables (AWS_REGION ->
// aws_region).
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, fmt.Errorf("idempotency_ttl must be positive, got %s", cfg.IdempotencyTTL)
	}
	for name, table := range map[string]string{
		"customers_table":   cfg.CustomersTable,
		"products_table":    cfg.ProductsTable,
		"orders_table":      cfg.OrdersTable,
		"idempotency_table": cfg.IdempotencyTable,
	} {
		if table == "" {
			return cfg, fmt.Errorf("%s must not be empty", name)
		}
	}
	return cfg, nil
}
