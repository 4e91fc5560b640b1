package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-stockorders/internal/validation"
)

// RegisterProductsRoutes registers routes for the product API.
func RegisterProductsRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/products", func(c *gin.Context) {
		var req validation.ProductRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		product, err := cfg.Products.Create(c.Request.Context(), req.Name, *req.Price, *req.Quantity)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.Header("Location", "/products/"+product.ID)
		c.JSON(http.StatusCreated, product)
	})

	r.PUT("/products/:id", func(c *gin.Context) {
		var req validation.ProductRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		product, err := cfg.Products.Update(c.Request.Context(), c.Param("id"), req.Name, *req.Price, *req.Quantity)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	})

	r.GET("/products/:id", func(c *gin.Context) {
		product, err := cfg.Products.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	})
}
