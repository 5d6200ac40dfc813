package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart domain errors.
var (
	ErrCartEmpty         = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrCartItemNotFound  = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrExceedsStock      = &Error{Code: ESTOCK, Message: "Requested quantity exceeds available stock"}
	ErrInvalidQuantity   = &Error{Code: EINVALID, Message: "Quantity must not be negative"}
	ErrOperationInFlight = &Error{Code: ECONFLICT, Message: "A matching cart operation is already in progress"}
)

// CartService is the authoritative mirror of a user's cart.
//
// Invariants enforced across all mutations: at most one line item per product,
// and every line's quantity stays within [1, stock snapshot]. A quantity of
// zero deletes the line rather than retaining it. Every successful mutation
// bumps the cart version, which invalidates any coupon result validated
// against the previous total.
type CartService interface {
	// Add creates a line item with quantity 1 for the product. If a line for
	// the product already exists the call is a no-op; quantity changes go
	// through SetQuantity.
	Add(ctx context.Context, userID, productID uuid.UUID) (*CartSummary, error)

	// SetQuantity updates a line item's quantity in place. A quantity of 0
	// removes the line.
	SetQuantity(ctx context.Context, userID, lineItemID uuid.UUID, quantity int32) (*CartSummary, error)

	// Remove deletes a line item unconditionally.
	Remove(ctx context.Context, userID, lineItemID uuid.UUID) (*CartSummary, error)

	// Summary retrieves the cart with all lines and computed totals.
	Summary(ctx context.Context, userID uuid.UUID) (*CartSummary, error)

	// Clear removes every line from the user's cart.
	Clear(ctx context.Context, userID uuid.UUID) error

	// Version reports the cart's mutation counter. Coupon results carry the
	// version they were validated against; a mismatch means re-validate.
	Version(ctx context.Context, userID uuid.UUID) (int64, error)
}

// LineItem is one product's quantity and price context within a cart.
type LineItem struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	ProductName     string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Quantity        int32
	Stock           int32
}

// CartSummary aggregates the cart lines with computed totals.
//
// Subtotal is the pre-discount sum, Total the item-discounted sum, and
// Savings their exact difference (Total + Savings == Subtotal).
type CartSummary struct {
	UserID    uuid.UUID
	Version   int64
	Items     []LineItem
	Subtotal  decimal.Decimal
	Total     decimal.Decimal
	Savings   decimal.Decimal
	ItemCount int
}
