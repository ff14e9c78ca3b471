package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/catalog"
	"storefront-service/internal/pricing"

	"github.com/gin-gonic/gin"
)

// listProducts handles catalog listing and name search
func (h *Handler) listProducts(c *gin.Context) {
	featured, _ := strconv.ParseBool(c.Query("featured"))
	onSale, _ := strconv.ParseBool(c.Query("on_sale"))

	products, err := h.catalog.List(catalog.Filter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Featured: featured,
		OnSale:   onSale,
	})
	if err != nil {
		h.respondError(c, "Failed to list products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// getProduct handles product detail
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// quotePrice returns the unit price for a size selection
func (h *Handler) quotePrice(c *gin.Context) {
	product, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}

	sizeID := c.Query("size")
	if sizeID != "" {
		if _, ok := product.Variants.Size(sizeID); !ok {
			badRequest(c, "Unknown size", nil)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": product.ID,
		"size_id":    sizeID,
		"on_sale":    product.IsOnSale && product.SalePrice.Valid && product.SalePrice.Decimal.IsPositive(),
		"price":      pricing.ResolvePrice(&product, sizeID),
	})
}
