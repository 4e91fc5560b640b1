package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/apperr"
	"github.com/imrishuroy/go-stockorders/internal/idempotency"
	"github.com/imrishuroy/go-stockorders/internal/orders"
	"github.com/imrishuroy/go-stockorders/internal/validation"
)

const jsonContentType = "application/json; charset=utf-8"

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "message": err.Error()})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		// Bind + validate request
		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		idempKey := c.GetHeader("Idempotency-Key")
		if cfg.Idempotency == nil {
			idempKey = ""
		}
		if idempKey != "" {
			sum := sha256.Sum256(raw)
			if !claimIdempotencyKey(c, cfg, idempKey, hex.EncodeToString(sum[:])) {
				return
			}
		}

		items := make([]orders.RequestedItem, 0, len(req.Products))
		for _, p := range req.Products {
			items = append(items, orders.RequestedItem{ProductID: p.ID, Quantity: p.Quantity})
		}

		order, err := cfg.Orders.CreateOrder(ctx, req.CustomerID, items)
		if err != nil {
			if idempKey != "" {
				releaseIdempotencyKey(ctx, cfg, idempKey, err)
			}
			writeError(c, cfg.Logger, err)
			return
		}

		body, err := json.Marshal(order)
		if err != nil {
			writeError(c, cfg.Logger, fmt.Errorf("marshal order: %w", err))
			return
		}
		if idempKey != "" {
			markIdempotencyDone(ctx, cfg, idempKey, order.ID, body)
		}

		c.Header("Location", fmt.Sprintf("/orders/%s", order.ID))
		c.Data(http.StatusCreated, jsonContentType, body)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := cfg.Orders.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})
}

// claimIdempotencyKey reserves key for this request. It returns false after
// writing a response when the request must not run: a stored response is
// replayed, or the key is busy or reused with a different body.
func claimIdempotencyKey(c *gin.Context, cfg HandlerConfig, key, requestHash string) bool {
	ctx := c.Request.Context()

	created, err := cfg.Idempotency.CreateIfNotExists(ctx, key, requestHash)
	if err != nil {
		writeError(c, cfg.Logger, fmt.Errorf("idempotency create: %w", err))
		return false
	}
	if created {
		return true
	}

	rec, err := cfg.Idempotency.Get(ctx, key)
	if err != nil {
		writeError(c, cfg.Logger, fmt.Errorf("idempotency get: %w", err))
		return false
	}
	if rec == nil {
		// expired between the conditional put and the read
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress", "message": "retry the request"})
		return false
	}
	if rec.RequestHash != "" && rec.RequestHash != requestHash {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "idempotency_key_reused",
			"message": "Idempotency-Key was already used with a different request body",
		})
		return false
	}

	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Header("Idempotent-Replayed", "true")
			if rec.OrderID != "" {
				c.Header("Location", fmt.Sprintf("/orders/%s", rec.OrderID))
			}
			c.Data(rec.ResponseStatus, jsonContentType, []byte(rec.ResponseBody))
			return false
		}
		c.JSON(http.StatusOK, gin.H{"id": rec.OrderID})
		return false
	case idempotency.StatusInProgress:
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress", "message": "request already in progress"})
		return false
	case idempotency.StatusFailed:
		reclaimed, err := cfg.Idempotency.Reclaim(ctx, key)
		if err != nil {
			writeError(c, cfg.Logger, fmt.Errorf("idempotency reclaim: %w", err))
			return false
		}
		if !reclaimed {
			c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress", "message": "request already in progress"})
			return false
		}
		return true
	default:
		writeError(c, cfg.Logger, fmt.Errorf("unknown idempotency status %q", rec.Status))
		return false
	}
}

// releaseIdempotencyKey lets the client retry a key after a business
// rejection. Those are raised before any write. Any other failure may come
// after stock was decremented, so the key stays IN_PROGRESS until it expires
// and a retry with it gets 409 instead of taking stock again.
func releaseIdempotencyKey(ctx context.Context, cfg HandlerConfig, key string, cause error) {
	if apperr.KindOf(cause) == apperr.KindUnknown {
		cfg.Logger.Error("order failed after claiming idempotency key; key left in progress",
			zap.String("idempotency_key", key), zap.Error(cause))
		return
	}
	if err := cfg.Idempotency.MarkFailed(ctx, key, apperr.Code(cause)); err != nil {
		cfg.Logger.Warn("mark idempotency failed", zap.String("idempotency_key", key), zap.Error(err))
	}
}

// markIdempotencyDone stores the response for replay, retrying once. If both
// attempts fail the key stays IN_PROGRESS and retries get 409.
func markIdempotencyDone(ctx context.Context, cfg HandlerConfig, key, orderID string, body []byte) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = cfg.Idempotency.MarkDone(ctx, key, orderID, string(body), http.StatusCreated); err == nil {
			return
		}
	}
	cfg.Logger.Error("mark idempotency done",
		zap.String("idempotency_key", key),
		zap.String("order_id", orderID),
		zap.Error(err))
}
