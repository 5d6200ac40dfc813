// Package repository provides the persistence collaborators behind the cart,
// coupon, checkout and order services: a Querier interface, a PostgreSQL
// implementation backed by pgx, and an in-memory implementation for tests.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Sentinel errors returned by Querier implementations. Services translate
// these into domain errors with user-facing messages.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrNoRowsAffected indicates a conditional update matched no rows,
	// e.g. assigning a rider to an order that already has one.
	ErrNoRowsAffected = errors.New("repository: no rows affected")

	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = errors.New("repository: duplicate")
)

// Querier is the full persistence surface the services depend on.
// The Postgres implementation enforces the conditional/exclusive semantics
// (rider assignment, stock decrement) at the database, which is what makes
// cross-actor races safe.
type Querier interface {
	// Catalog (read-only input to cart and pricing)
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	// DecrementStock reduces stock by qty only while enough remains;
	// returns ErrNoRowsAffected otherwise.
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int32) error
	// RestoreStock returns qty units, compensating a decrement when a
	// later checkout step fails.
	RestoreStock(ctx context.Context, productID uuid.UUID, qty int32) error

	// Cart lines
	ListCartLines(ctx context.Context, userID uuid.UUID) ([]domain.LineItem, error)
	GetCartLine(ctx context.Context, userID, lineItemID uuid.UUID) (*domain.LineItem, error)
	GetCartLineByProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.LineItem, error)
	InsertCartLine(ctx context.Context, userID uuid.UUID, product *domain.Product, quantity int32) (*domain.LineItem, error)
	UpdateCartLineQuantity(ctx context.Context, userID, lineItemID uuid.UUID, quantity int32) error
	DeleteCartLine(ctx context.Context, userID, lineItemID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	GetCartVersion(ctx context.Context, userID uuid.UUID) (int64, error)
	BumpCartVersion(ctx context.Context, userID uuid.UUID) (int64, error)

	// Coupons and redemptions
	ListActiveCoupons(ctx context.Context) ([]domain.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	GetRedemptionCount(ctx context.Context, userID, couponID uuid.UUID) (int32, error)
	IncrementRedemption(ctx context.Context, userID, couponID uuid.UUID) error
	CreateCoupon(ctx context.Context, coupon *domain.Coupon) error
	UpdateCoupon(ctx context.Context, coupon *domain.Coupon) error
	DeleteCoupon(ctx context.Context, couponID uuid.UUID) error

	// Addresses (read-only input to checkout)
	ListActiveAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error)

	// Orders
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	// TransitionDeliveryStatus moves an order from exactly `from` to `to`;
	// returns ErrNoRowsAffected when the order is no longer in `from`.
	TransitionDeliveryStatus(ctx context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus) error
	// MarkDelivered moves any non-terminal order to Delivered;
	// returns ErrNoRowsAffected when the order is already terminal.
	MarkDelivered(ctx context.Context, orderID uuid.UUID) error
	// AssignRider claims an unassigned order for riderID. The update is
	// conditional on rider_id being unset so concurrent claims resolve to
	// exactly one winner; losers get ErrNoRowsAffected.
	AssignRider(ctx context.Context, orderID, riderID uuid.UUID) error
	// SetEstimatedTime records the estimate, conditional on riderID being
	// the assigned rider.
	SetEstimatedTime(ctx context.Context, orderID, riderID uuid.UUID, minutes int32) error
	// MarkPaid moves a PENDING order to PAID on gateway confirmation;
	// returns ErrNoRowsAffected when the order is not awaiting payment.
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
}
