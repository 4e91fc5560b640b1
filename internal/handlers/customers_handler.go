package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-stockorders/internal/validation"
)

// RegisterCustomersRoutes registers routes for the customer API.
func RegisterCustomersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/customers", func(c *gin.Context) {
		var req validation.CreateCustomerRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		customer, err := cfg.Customers.Create(c.Request.Context(), req.Name, req.Email)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.Header("Location", "/customers/"+customer.ID)
		c.JSON(http.StatusCreated, customer)
	})

	r.GET("/customers/:id", func(c *gin.Context) {
		customer, err := cfg.Customers.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, customer)
	})
}
