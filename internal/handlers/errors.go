package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-stockorders/internal/apperr"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// errorResponse maps err to an HTTP status and body.
func errorResponse(err error) (int, ErrorResponse) {
	resp := ErrorResponse{
		Error:   apperr.Code(err),
		Message: err.Error(),
	}

	var (
		customerNF *apperr.CustomerNotFoundError
		productNF  *apperr.ProductNotFoundError
		orderNF    *apperr.OrderNotFoundError
		mismatch   *apperr.ProductSetMismatchError
		stock      *apperr.InsufficientStockError
		invalid    *apperr.InvalidRequestError
	)
	switch {
	case errors.As(err, &customerNF):
		resp.Details = map[string]any{"customer_id": customerNF.CustomerID}
	case errors.As(err, &productNF):
		resp.Details = map[string]any{"product_id": productNF.ProductID}
	case errors.As(err, &orderNF):
		resp.Details = map[string]any{"order_id": orderNF.OrderID}
	case errors.As(err, &mismatch):
		resp.Details = map[string]any{"missing": mismatch.Missing}
		if len(mismatch.Duplicated) > 0 {
			resp.Details["duplicated"] = mismatch.Duplicated
		}
	case errors.As(err, &stock):
		resp.Details = map[string]any{
			"customer_id":  stock.CustomerID,
			"product_id":   stock.ProductID,
			"product_name": stock.ProductName,
			"requested":    stock.Requested,
			"available":    stock.Available,
		}
	case errors.As(err, &invalid):
		resp.Details = map[string]any{"field": invalid.Field}
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound, resp
	case apperr.KindValidation:
		return http.StatusBadRequest, resp
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "internal server error",
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, resp)
}
