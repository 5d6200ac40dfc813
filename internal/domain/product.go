package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product-related domain errors.
var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrOutOfStock      = &Error{Code: ESTOCK, Message: "Product is out of stock"}
)

// Product is the catalog view the cart and pricing operate on: the unit price,
// the storefront percentage discount, and a point-in-time stock figure.
// The catalog itself (search, categories, images) is an external collaborator.
type Product struct {
	ID              uuid.UUID
	Name            string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Stock           int32
}

// CatalogService provides read-only product lookups for cart and checkout.
type CatalogService interface {
	// GetProduct retrieves the current price, discount and stock for a product.
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)
}
