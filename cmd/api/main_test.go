package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/aws"
	"github.com/imrishuroy/go-stockorders/internal/aws/awstest"
	"github.com/imrishuroy/go-stockorders/internal/config"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["lambda"])
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestNewRouter_WiresConfiguredTables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg, err := config.Load(config.New())
	require.NoError(t, err)

	db := awstest.NewDynamo(map[string]string{
		cfg.CustomersTable:   "customer_id",
		cfg.ProductsTable:    "product_id",
		cfg.OrdersTable:      "order_id",
		cfg.IdempotencyTable: "idempotency_key",
	})
	r := newRouter(cfg, &aws.AWSClients{DynamoDB: db, SQS: &awstest.SQS{}}, zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/products/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, db.Calls["GetItem"])
}
