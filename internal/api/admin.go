package api

import (
	"net/http"

	"storefront-service/internal/catalog"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest is the body of PATCH /admin/orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// dashboard handles the admin summary
func (h *Handler) dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to load dashboard", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) adminListProducts(c *gin.Context) {
	products, err := h.catalog.List(catalog.Filter{Query: c.Query("q"), Category: c.Query("category")})
	if err != nil {
		h.respondError(c, "Failed to list products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"count":      len(products),
		"categories": h.catalog.Categories(),
	})
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.admin.CreateProduct(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "Failed to create product", err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// updateProduct replaces a product with the submitted form
func (h *Handler) updateProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.admin.UpdateProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, "Failed to update product", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.admin.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete product", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// adminListOrders handles the paged order list
func (h *Handler) adminListOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.ListOrders(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, "Failed to list orders", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// updateOrderStatus moves an order through processing, shipped, delivered or cancelled
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	orderID := c.Param("id")
	if err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.Status); err != nil {
		h.respondError(c, "Failed to update order status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"status":   req.Status,
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.admin.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, "Failed to list users", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}
