package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon domain errors. All are user-recoverable validation failures.
var (
	ErrCouponNotFound     = &Error{Code: ENOTFOUND, Message: "Coupon code not found or inactive"}
	ErrCouponExpired      = &Error{Code: EINVALID, Message: "Coupon is not valid at this time"}
	ErrCouponBelowMinimum = &Error{Code: EINVALID, Message: "Order amount is below the coupon minimum"}
	ErrCouponLimitReached = &Error{Code: EINVALID, Message: "Coupon usage limit reached"}
)

// DiscountType distinguishes percentage coupons from fixed-amount coupons.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon is a named discount rule with eligibility and usage constraints.
// Coupons are created and edited by administrative actors; the core treats
// them as read-only.
type Coupon struct {
	ID            uuid.UUID
	Code          string // unique, matched case-insensitively
	Description   string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderAmt   decimal.Decimal
	// MaxDiscountAmt caps percentage discounts; nil means uncapped.
	// Ignored for fixed coupons.
	MaxDiscountAmt *decimal.Decimal
	// UsageLimit is the per-user redemption ceiling; nil means unlimited.
	UsageLimit *int32
	ValidFrom  time.Time
	ValidUntil time.Time
	Active     bool
}

// AppliedCouponResult is the transient outcome of validating a coupon against
// an order amount. It is held client-side until order submission or until the
// cart changes, then discarded. CartVersion records the cart state the result
// was computed against.
type AppliedCouponResult struct {
	Coupon         Coupon
	Valid          bool
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	CartVersion    int64
}

// CouponService validates and lists coupons. Validation never consumes usage;
// redemption counts move only when an order is placed.
type CouponService interface {
	// Validate checks code against the order amount and the user's redemption
	// history, returning the discount and final amount on success.
	Validate(ctx context.Context, userID uuid.UUID, code string, orderAmount decimal.Decimal) (*AppliedCouponResult, error)

	// ListEligible returns the active coupons the user can still redeem.
	// Order-amount eligibility is only checked at apply time.
	ListEligible(ctx context.Context, userID uuid.UUID) ([]Coupon, error)
}

// CouponAdminService manages coupon definitions. Administrative only;
// enforcement of the role gate happens at the transport layer.
type CouponAdminService interface {
	CreateCoupon(ctx context.Context, coupon *Coupon) error
	UpdateCoupon(ctx context.Context, coupon *Coupon) error
	DeleteCoupon(ctx context.Context, couponID uuid.UUID) error
	ListCoupons(ctx context.Context) ([]Coupon, error)
}
