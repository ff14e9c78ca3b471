package api

import (
	"net/http"
	"strings"

	"storefront-service/internal/checkout"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// submitCheckout places an order from the session cart and clears the cart on
// success. Blank shipping fields are taken from the user's profile.
func (h *Handler) submitCheckout(c *gin.Context) {
	var shipping checkout.Shipping
	if err := c.ShouldBindJSON(&shipping); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	identity := currentIdentity(c)
	session := sessionID(c)
	cartState := h.carts.Get(ctx, session)

	attempt := h.checkout.Submit(ctx, checkout.Submission{
		UserID:         identity.UserID,
		Lines:          cartState.Items,
		Shipping:       h.prefillShipping(ctx, identity.UserID, shipping),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	})
	if attempt.Err != nil {
		h.respondError(c, "Checkout failed", attempt.Err)
		return
	}

	if attempt.Replayed {
		c.JSON(http.StatusOK, gin.H{
			"order_id": attempt.OrderID,
			"status":   attempt.Phase.String(),
			"replayed": true,
		})
		return
	}

	if err := h.carts.ClearCart(ctx, session); err != nil {
		h.logger.Warn("Failed to clear cart after checkout",
			zap.String("order_id", attempt.OrderID),
			zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": attempt.OrderID,
		"status":   attempt.Phase.String(),
		"order":    attempt.Order,
	})
}

// getOrder returns an order to its owner or an admin
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"), currentIdentity(c))
	if err != nil {
		h.respondError(c, "Order not found", err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// listMyOrders returns the orders of the signed-in user
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.orders.ListUserOrders(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		h.respondError(c, "Failed to list orders", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}
