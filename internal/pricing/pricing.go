// Package pricing computes line and cart totals from base prices and
// percentage discounts. All functions are pure and total: money stays in
// exact decimal form throughout, and rounding happens only at the display
// boundary so sums never accumulate drift.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// clampPercent bounds a discount percentage to [0, 100].
func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// EffectivePrice returns price reduced by discountPercent.
// EffectivePrice(p, 0) == p and the result never exceeds p.
func EffectivePrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	d := clampPercent(discountPercent)
	return price.Sub(price.Mul(d).Div(hundred))
}

// LineTotal returns the discounted price of a line: EffectivePrice * quantity.
func LineTotal(price, discountPercent decimal.Decimal, quantity int32) decimal.Decimal {
	return EffectivePrice(price, discountPercent).Mul(decimal.NewFromInt32(quantity))
}

// CartSubtotal sums base price * quantity across the cart, before discounts.
func CartSubtotal(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt32(it.Quantity)))
	}
	return sum
}

// CartTotal sums discounted line totals across the cart.
func CartTotal(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineTotal(it.Price, it.DiscountPercent, it.Quantity))
	}
	return sum
}

// TotalSavings is the exact difference between subtotal and total, so
// CartTotal + TotalSavings == CartSubtotal holds without rounding loss.
func TotalSavings(items []domain.LineItem) decimal.Decimal {
	return CartSubtotal(items).Sub(CartTotal(items))
}

// RoundDisplay rounds a money value to two decimal places for presentation.
// Intermediate computations must never pass through this.
func RoundDisplay(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
