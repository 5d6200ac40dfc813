package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/pricing"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Test_Pricing_WorkedExample validates the canonical storefront example:
// price 100 at 10% off, quantity 2, gives subtotal 200, total 180, savings 20.
func Test_Pricing_WorkedExample(t *testing.T) {
	items := []domain.LineItem{
		{Price: d("100"), DiscountPercent: d("10"), Quantity: 2},
	}

	assert.True(t, pricing.CartSubtotal(items).Equal(d("200")), "2 * 100 = 200")
	assert.True(t, pricing.CartTotal(items).Equal(d("180")), "2 * 90 = 180")
	assert.True(t, pricing.TotalSavings(items).Equal(d("20")), "200 - 180 = 20")
}

func Test_EffectivePrice(t *testing.T) {
	tests := []struct {
		name        string
		price       string
		discount    string
		expected    string
		explanation string
	}{
		{
			name:        "zero discount returns price unchanged",
			price:       "49.99",
			discount:    "0",
			expected:    "49.99",
			explanation: "EffectivePrice(p, 0) == p",
		},
		{
			name:        "ten percent off",
			price:       "100",
			discount:    "10",
			expected:    "90",
			explanation: "100 - 100*10/100 = 90",
		},
		{
			name:        "fractional price keeps exact decimal",
			price:       "33.50",
			discount:    "25",
			expected:    "25.125",
			explanation: "33.50 * 0.75 = 25.125, no premature rounding",
		},
		{
			name:        "negative discount clamps to zero",
			price:       "80",
			discount:    "-15",
			expected:    "80",
			explanation: "discount below 0 is treated as 0",
		},
		{
			name:        "discount above hundred clamps to hundred",
			price:       "80",
			discount:    "150",
			expected:    "0",
			explanation: "discount above 100 is treated as 100",
		},
		{
			name:        "full discount gives zero",
			price:       "19.99",
			discount:    "100",
			expected:    "0",
			explanation: "100% off is free",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.EffectivePrice(d(tt.price), d(tt.discount))
			assert.True(t, got.Equal(d(tt.expected)),
				"%s: got %s, want %s", tt.explanation, got, tt.expected)
		})
	}
}

func Test_LineTotal(t *testing.T) {
	got := pricing.LineTotal(d("10.75"), d("20"), 3)
	assert.True(t, got.Equal(d("25.80")), "10.75 * 0.8 * 3 = 25.80")
}

// Test_CartTotals_SavingsReconcile verifies the reconciliation invariant:
// total plus savings equals the subtotal exactly, even with awkward decimals.
func Test_CartTotals_SavingsReconcile(t *testing.T) {
	items := []domain.LineItem{
		{Price: d("3.33"), DiscountPercent: d("7"), Quantity: 3},
		{Price: d("19.99"), DiscountPercent: d("12.5"), Quantity: 1},
		{Price: d("0.99"), DiscountPercent: d("0"), Quantity: 7},
	}

	subtotal := pricing.CartSubtotal(items)
	total := pricing.CartTotal(items)
	savings := pricing.TotalSavings(items)

	assert.True(t, total.Add(savings).Equal(subtotal),
		"total %s + savings %s must equal subtotal %s", total, savings, subtotal)
}

func Test_CartTotals_EmptyCart(t *testing.T) {
	assert.True(t, pricing.CartSubtotal(nil).IsZero())
	assert.True(t, pricing.CartTotal(nil).IsZero())
	assert.True(t, pricing.TotalSavings(nil).IsZero())
}

func Test_RoundDisplay(t *testing.T) {
	assert.True(t, pricing.RoundDisplay(d("25.125")).Equal(d("25.13")), "half rounds away from zero")
	assert.True(t, pricing.RoundDisplay(d("25.124")).Equal(d("25.12")))
	assert.True(t, pricing.RoundDisplay(d("180")).Equal(d("180")))
}
