package pricing

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testProduct() *models.Product {
	return &models.Product{
		ID:        "prod-a",
		Name:      "Product A",
		BasePrice: dec("50"),
		Variants: models.Variants{
			Sizes: []models.Size{
				{ID: "S", Name: "S", PriceModifier: decimal.Zero, Stock: 4},
				{ID: "M", Name: "M", PriceModifier: dec("5"), Stock: 2},
				{ID: "XL", Name: "XL", PriceModifier: dec("12.50"), Stock: 1},
			},
		},
	}
}

func TestResolvePrice_RegularPrice(t *testing.T) {
	p := testProduct()

	tests := []struct {
		name     string
		sizeID   string
		expected string
	}{
		{"no size", "", "50"},
		{"size without modifier", "S", "50"},
		{"size with modifier", "M", "55"},
		{"fractional modifier", "XL", "62.5"},
		{"unknown size", "XXL", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePrice(p, tt.sizeID)
			assert.True(t, dec(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestResolvePrice_SalePriceIgnoresSize(t *testing.T) {
	p := testProduct()
	p.IsOnSale = true
	p.SalePrice = decimal.NewNullDecimal(dec("40"))

	for _, sizeID := range []string{"", "S", "M", "XL", "unknown"} {
		got := ResolvePrice(p, sizeID)
		assert.True(t, dec("40").Equal(got), "size %q: got %s", sizeID, got)
	}
}

func TestResolvePrice_SaleWithoutUsableSalePrice(t *testing.T) {
	p := testProduct()
	p.IsOnSale = true

	assert.True(t, dec("55").Equal(ResolvePrice(p, "M")), "missing sale price falls back to base")

	p.SalePrice = decimal.NewNullDecimal(decimal.Zero)
	assert.True(t, dec("55").Equal(ResolvePrice(p, "M")), "zero sale price falls back to base")
}

func TestResolvePrice_SalePriceWithoutFlag(t *testing.T) {
	p := testProduct()
	p.SalePrice = decimal.NewNullDecimal(dec("40"))

	assert.True(t, dec("55").Equal(ResolvePrice(p, "M")))
}

func TestResolvePrice_NilProduct(t *testing.T) {
	assert.True(t, ResolvePrice(nil, "M").IsZero())
}

func TestTotal(t *testing.T) {
	lines := []models.CartLine{
		{Price: dec("55"), Quantity: 2},
		{Price: dec("19.99"), Quantity: 3},
	}

	assert.True(t, dec("169.97").Equal(Total(lines)))
	assert.True(t, Total(nil).IsZero())
	assert.True(t, dec("110").Equal(LineTotal(dec("55"), 2)))
}
