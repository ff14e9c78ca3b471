// Package pricing resolves unit prices for products and their size variants.
package pricing

import (
	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// ResolvePrice returns the unit price of product for the selected size.
//
// An active sale price wins outright and size modifiers are not added to it.
// Otherwise the base price is adjusted by the modifier of the selected size.
// A nil product resolves to zero.
func ResolvePrice(product *models.Product, sizeID string) decimal.Decimal {
	if product == nil {
		return decimal.Zero
	}

	if product.IsOnSale && product.SalePrice.Valid && product.SalePrice.Decimal.IsPositive() {
		return product.SalePrice.Decimal
	}

	unit := product.BasePrice
	if sizeID != "" {
		if size, ok := product.Variants.Size(sizeID); ok {
			unit = unit.Add(size.PriceModifier)
		}
	}
	return unit
}

// LineTotal is price times quantity
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums the line totals of a cart
func Total(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineTotal(line.Price, line.Quantity))
	}
	return total
}
