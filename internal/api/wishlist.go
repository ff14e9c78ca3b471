package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/catalog"
	"storefront-service/internal/wishlist"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddWishlistRequest is the body of POST /wishlist
type AddWishlistRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// signIn records the user document and announces the sign-in, which hydrates the wishlist
func (h *Handler) signIn(c *gin.Context) {
	identity := currentIdentity(c)

	if h.users != nil {
		if err := h.users.EnsureUser(c.Request.Context(), identity.UserID, identity.Email, identity.Role); err != nil {
			h.logger.Error("Failed to ensure user", zap.String("user_id", identity.UserID), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Failed to start session",
				"details":   err.Error(),
				"retryable": true,
			})
			return
		}
	}

	h.auth.SignIn(c.Request.Context(), identity)

	c.JSON(http.StatusOK, gin.H{
		"user":     identity,
		"wishlist": h.wishlists.Items(c.Request.Context(), identity.UserID).Items,
	})
}

// signOut announces the sign-out, which forgets the local wishlist
func (h *Handler) signOut(c *gin.Context) {
	h.auth.SignOut(c.Request.Context(), currentIdentity(c).UserID)
	c.Status(http.StatusNoContent)
}

// getWishlist handles wishlist listing
func (h *Handler) getWishlist(c *gin.Context) {
	state := h.wishlists.Items(c.Request.Context(), currentIdentity(c).UserID)
	c.JSON(http.StatusOK, wishlistBody(state))
}

// addToWishlist adds a catalog product to the wishlist
func (h *Handler) addToWishlist(c *gin.Context) {
	var req AddWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.catalog.Get(req.ProductID)
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	state := h.wishlists.Add(c.Request.Context(), currentIdentity(c).UserID, product)
	c.JSON(http.StatusOK, wishlistBody(state))
}

// removeFromWishlist drops a product by id; products no longer in the catalog can still be removed
func (h *Handler) removeFromWishlist(c *gin.Context) {
	state := h.wishlists.Remove(c.Request.Context(), currentIdentity(c).UserID, c.Param("productId"))
	c.JSON(http.StatusOK, wishlistBody(state))
}

// toggleWishlist flips the wishlist membership of a product
func (h *Handler) toggleWishlist(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentIdentity(c).UserID
	productID := c.Param("productId")

	product, err := h.catalog.Get(productID)
	if errors.Is(err, catalog.ErrProductNotFound) && h.wishlists.Items(ctx, userID).Contains(productID) {
		state := h.wishlists.Remove(ctx, userID, productID)
		c.JSON(http.StatusOK, gin.H{"items": state.Items, "count": len(state.Items), "wishlisted": false})
		return
	}
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	state, wishlisted := h.wishlists.Toggle(ctx, userID, product)
	c.JSON(http.StatusOK, gin.H{"items": state.Items, "count": len(state.Items), "wishlisted": wishlisted})
}

func wishlistBody(state wishlist.State) gin.H {
	return gin.H{"items": state.Items, "count": len(state.Items)}
}
