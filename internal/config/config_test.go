package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "products", cfg.ProductsTable)
	assert.Equal(t, 48*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.RunLocal)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:4566")
	t.Setenv("ORDERS_TABLE", "orders-test")
	t.Setenv("ORDERS_QUEUE_URL", "http://localhost:4566/000000000000/orders")
	t.Setenv("IDEMPOTENCY_TTL", "2h")
	t.Setenv("RUN_LOCAL", "true")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "http://localhost:4566", cfg.AWSEndpoint)
	assert.Equal(t, "orders-test", cfg.OrdersTable)
	assert.Equal(t, "http://localhost:4566/000000000000/orders", cfg.QueueURL)
	assert.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
	assert.True(t, cfg.RunLocal)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	v := New()
	v.Set("idempotency_ttl", "0s")
	_, err := Load(v)
	assert.Error(t, err)

	v = New()
	v.Set("products_table", "")
	_, err = Load(v)
	assert.Error(t, err)
}
