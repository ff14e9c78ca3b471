package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront-service/internal/checkout"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getProfile returns the profile of the signed-in user
func (h *Handler) getProfile(c *gin.Context) {
	user, err := h.profiles.GetProfile(c.Request.Context(), currentIdentity(c).UserID)
	if err != nil {
		h.respondError(c, "Profile not found", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// updateProfile saves the profile form of the signed-in user
func (h *Handler) updateProfile(c *gin.Context) {
	var in service.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	user, err := h.profiles.UpdateProfile(c.Request.Context(), currentIdentity(c).UserID, in)
	if err != nil {
		h.respondError(c, "Failed to update profile", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// checkoutShipping returns the checkout form pre-filled from the profile
func (h *Handler) checkoutShipping(c *gin.Context) {
	identity := currentIdentity(c)
	shipping := checkout.Shipping{Email: identity.Email}

	c.JSON(http.StatusOK, gin.H{
		"shipping": h.prefillShipping(c.Request.Context(), identity.UserID, shipping),
	})
}

// prefillShipping fills the blank fields of shipping from the user's profile.
// A missing or unreadable profile leaves shipping as it is.
func (h *Handler) prefillShipping(ctx context.Context, userID string, shipping checkout.Shipping) checkout.Shipping {
	if h.profiles == nil {
		return shipping
	}

	user, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			h.logger.Warn("Failed to read profile for checkout", zap.String("user_id", userID), zap.Error(err))
		}
		return shipping
	}
	return mergeShipping(shipping, user)
}

func mergeShipping(s checkout.Shipping, user *models.User) checkout.Shipping {
	s.Name = firstNonBlank(s.Name, user.Name)
	s.Email = firstNonBlank(s.Email, user.Email)
	s.Phone = firstNonBlank(s.Phone, user.Phone)
	s.Address.Street = firstNonBlank(s.Address.Street, user.Address.Street)
	s.Address.City = firstNonBlank(s.Address.City, user.Address.City)
	s.Address.State = firstNonBlank(s.Address.State, user.Address.State)
	s.Address.Zip = firstNonBlank(s.Address.Zip, user.Address.Zip)
	return s
}

func firstNonBlank(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
