package api

import (
	"net/http"

	"storefront-service/internal/cart"
	"storefront-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddCartItemRequest is the body of POST /cart/items
type AddCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	SizeID    string `json:"size_id"`
	ColorID   string `json:"color_id"`
}

// UpdateCartItemRequest is the body of PATCH /cart/items/:lineId
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartResponse is the cart summary
type CartResponse struct {
	Items       []models.CartLine `json:"items"`
	ItemCount   int               `json:"item_count"`
	Total       decimal.Decimal   `json:"total"`
	MaxQuantity int               `json:"max_quantity"`
}

func (h *Handler) cartResponse(state cart.State) CartResponse {
	return CartResponse{
		Items:       state.Items,
		ItemCount:   state.ItemCount(),
		Total:       state.Total(),
		MaxQuantity: h.carts.MaxQuantity(),
	}
}

// getCart handles cart summary
func (h *Handler) getCart(c *gin.Context) {
	state := h.carts.Get(c.Request.Context(), sessionID(c))
	c.JSON(http.StatusOK, h.cartResponse(state))
}

// addCartItem adds one unit of a product variant to the cart
func (h *Handler) addCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.catalog.Get(req.ProductID)
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	if req.SizeID != "" {
		if _, ok := product.Variants.Size(req.SizeID); !ok {
			badRequest(c, "Unknown size", nil)
			return
		}
	}
	if req.ColorID != "" {
		if _, ok := product.Variants.Color(req.ColorID); !ok {
			badRequest(c, "Unknown color", nil)
			return
		}
	}
	if product.StockStatus == models.StockStatusOutOfStock {
		c.JSON(http.StatusConflict, gin.H{"error": "Product is out of stock"})
		return
	}

	state := h.carts.AddToCart(c.Request.Context(), sessionID(c), product, req.SizeID, req.ColorID)
	c.JSON(http.StatusOK, h.cartResponse(state))
}

// updateCartItem sets a line quantity; values are clamped to the allowed range
func (h *Handler) updateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	state := h.carts.UpdateQuantity(c.Request.Context(), sessionID(c), c.Param("lineId"), *req.Quantity)
	c.JSON(http.StatusOK, h.cartResponse(state))
}

// removeCartItem drops a line from the cart
func (h *Handler) removeCartItem(c *gin.Context) {
	state := h.carts.RemoveFromCart(c.Request.Context(), sessionID(c), c.Param("lineId"))
	c.JSON(http.StatusOK, h.cartResponse(state))
}

// clearCart empties the cart
func (h *Handler) clearCart(c *gin.Context) {
	if err := h.carts.ClearCart(c.Request.Context(), sessionID(c)); err != nil {
		h.logger.Error("Failed to clear cart", zap.String("session_id", sessionID(c)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Failed to clear cart",
			"details":   err.Error(),
			"retryable": true,
		})
		return
	}

	c.JSON(http.StatusOK, h.cartResponse(cart.State{Items: []models.CartLine{}}))
}
