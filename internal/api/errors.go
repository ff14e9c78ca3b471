package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/auth"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps a domain error to a status code and a JSON error body
func (h *Handler) respondError(c *gin.Context, message string, err error) {
	var (
		checkoutValidation *checkout.ValidationError
		productValidation  *service.ValidationError
		stockErr           *checkout.InsufficientStockError
		transient          *checkout.TransientError
	)

	switch {
	case errors.As(err, &checkoutValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error(), "fields": checkoutValidation.Fields})
	case errors.As(err, &productValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error(), "fields": productValidation.Fields})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": message, "details": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   message,
			"details": err.Error(),
			"product": stockErr.ProductName,
			"size":    stockErr.SizeName,
		})
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": message, "details": err.Error(), "retryable": true})
	case errors.Is(err, auth.ErrAuthRequired), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": message, "details": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": message})
	case errors.Is(err, store.ErrProductNotFound), errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, store.ErrOrderNotFound),
		errors.Is(err, store.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": message, "details": err.Error()})
	case errors.As(err, &transient), errors.Is(err, catalog.ErrNotLoaded):
		h.logger.Warn(message, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": message, "details": err.Error(), "retryable": true})
	default:
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
