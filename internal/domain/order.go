package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order domain errors.
var (
	ErrOrderNotFound     = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrNoAddressSelected = &Error{Code: EINVALID, Message: "Please select a delivery address"}
	ErrAlreadyAssigned   = &Error{Code: ECONFLICT, Message: "Order already assigned to a rider"}
	ErrNotAssignedRider  = &Error{Code: EFORBIDDEN, Message: "Only the assigned rider can update this order"}
	ErrAlreadyDelivered  = &Error{Code: ECONFLICT, Message: "Order has already been delivered"}
	ErrInvalidTransition = &Error{Code: ECONFLICT, Message: "Delivery status transition not allowed"}
	ErrRoleNotPermitted  = &Error{Code: EFORBIDDEN, Message: "Actor role is not permitted to perform this transition"}
	ErrPaymentNotPending = &Error{Code: ECONFLICT, Message: "Order is not awaiting payment"}
	ErrCouponStale       = &Error{Code: EINVALID, Message: "Applied coupon no longer matches the cart total"}
)

// PaymentStatus tracks how an order is (or will be) paid.
type PaymentStatus string

const (
	PaymentCashOnDelivery PaymentStatus = "CASH ON DELIVERY"
	PaymentPending        PaymentStatus = "PENDING"
	PaymentPaid           PaymentStatus = "PAID"
)

// PaymentMethod selects the checkout flow.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// DeliveryStatus is the order's position in its fulfillment state machine.
type DeliveryStatus string

const (
	DeliveryPlaced     DeliveryStatus = "Placed"
	DeliveryProcessing DeliveryStatus = "Processing"
	DeliveryShipped    DeliveryStatus = "Shipped"
	DeliveryDelivered  DeliveryStatus = "Delivered"
)

// IsValid reports whether the delivery status is a known state.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryPlaced, DeliveryProcessing, DeliveryShipped, DeliveryDelivered:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered
}

// CanTransitionTo reports whether the fulfillment state machine permits
// moving from s to next. Delivered may be reached from any earlier state
// (a rider can hand an order over before an admin marks it shipped).
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case DeliveryProcessing:
		return s == DeliveryPlaced
	case DeliveryShipped:
		return s == DeliveryProcessing
	case DeliveryDelivered:
		return true
	default:
		return false
	}
}

// ActorRole gates lifecycle transitions.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleAdmin    ActorRole = "admin"
	RoleSeller   ActorRole = "seller"
	RoleRider    ActorRole = "rider"
)

// Administrative reports whether the role carries admin-level order authority.
// Sellers manage fulfillment for their storefront the same way admins do.
func (r ActorRole) Administrative() bool {
	return r == RoleAdmin || r == RoleSeller
}

// OrderItem is an immutable snapshot of one cart line at order creation.
// Later catalog price changes never retroactively affect a placed order.
type OrderItem struct {
	ProductID       uuid.UUID
	ProductName     string
	Quantity        int32
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
}

// AddressSnapshot is the delivery address fixed at order creation.
type AddressSnapshot struct {
	AddressLine string
	City        string
	State       string
	Country     string
	Pincode     string
	Mobile      string
}

// Order is a priced, immutable record of a submitted cart.
//
// The product/price/discount/address snapshot never changes after creation;
// only delivery status, rider assignment, estimate and payment status are
// mutated, and only through the lifecycle service.
type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Items             []OrderItem
	Address           AddressSnapshot
	SubTotalAmt       decimal.Decimal // item-discounted cart total
	TotalAmt          decimal.Decimal // after coupon
	AppliedCouponCode string          // empty when no coupon was used
	PaymentStatus     PaymentStatus
	DeliveryStatus    DeliveryStatus
	RiderID           *uuid.UUID
	EstimatedMinutes  *int32
	CreatedAt         time.Time
}

// Assigned reports whether a rider has claimed the order.
func (o *Order) Assigned() bool {
	return o.RiderID != nil
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID     *uuid.UUID
	RiderID    *uuid.UUID
	Unassigned bool
	Status     *DeliveryStatus
}

// SubmitParams carries a checkout submission.
type SubmitParams struct {
	UserID        uuid.UUID
	PaymentMethod PaymentMethod
	AddressID     uuid.UUID
	// CouponCode is the code the user most recently validated, empty for none.
	CouponCode string
	// Resumed is an AppliedCouponResult restored from an earlier session
	// (e.g. surviving a page reload). It is never trusted as-is; the
	// coordinator re-validates it against the current cart total.
	Resumed *AppliedCouponResult
}

// SubmitResult is the outcome of a checkout submission. For online payments
// RedirectURL points at the external payment session; the order stays PENDING
// until the gateway confirms out of band.
type SubmitResult struct {
	Order       *Order
	RedirectURL string
}

// CheckoutService binds a selected address, the priced cart and an optional
// coupon into an order submission.
type CheckoutService interface {
	Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error)
}

// OrderLifecycleService owns an order after creation: delivery status,
// rider assignment and delivery estimates, all role-gated.
type OrderLifecycleService interface {
	// MarkProcessing moves a placed order to Processing. Administrative only.
	MarkProcessing(ctx context.Context, orderID uuid.UUID, actor ActorRole) (*Order, error)

	// MarkShipped moves a processing order to Shipped. Administrative only.
	MarkShipped(ctx context.Context, orderID uuid.UUID, actor ActorRole) (*Order, error)

	// Accept claims an unassigned order for a rider. Exactly one of several
	// concurrent claims succeeds; losers get ErrAlreadyAssigned.
	Accept(ctx context.Context, orderID, riderID uuid.UUID) (*Order, error)

	// SetEstimatedTime records the assigned rider's delivery estimate.
	SetEstimatedTime(ctx context.Context, orderID, riderID uuid.UUID, minutes int32) (*Order, error)

	// MarkDelivered completes the order. Assigned rider or administrative
	// actor; rejected with ErrAlreadyDelivered once terminal.
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID, actor ActorRole) (*Order, error)

	// ConfirmPayment marks a PENDING online order as PAID once the gateway
	// reports the charge. Administrative only.
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, actor ActorRole) (*Order, error)

	// GetOrder retrieves a single order.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)

	// ListOrders returns orders matching the filter, newest first.
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}
