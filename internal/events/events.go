// Package events publishes order lifecycle notifications. The NATS
// implementation fans events out to downstream consumers (notifications,
// analytics); the noop implementation keeps the services decoupled from the
// broker when none is configured.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Subjects published by the order services.
const (
	SubjectOrderPlaced    = "orders.placed"
	SubjectOrderStatus    = "orders.status"
	SubjectOrderDelivered = "orders.delivered"
)

// OrderPlaced is emitted once per successful checkout.
type OrderPlaced struct {
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	TotalAmt      decimal.Decimal `json:"total_amt"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// OrderStatusChanged is emitted on every delivery status transition.
type OrderStatusChanged struct {
	OrderID uuid.UUID `json:"order_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	ActorID uuid.UUID `json:"actor_id"`
	At      time.Time `json:"at"`
}

// Publisher emits order lifecycle events. Publishing is best-effort from the
// caller's point of view; services log failures and do not roll back.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	PublishStatusChanged(ctx context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus, actorID uuid.UUID) error
}

// Noop discards all events.
type Noop struct{}

var _ Publisher = (*Noop)(nil)

func (Noop) PublishOrderPlaced(context.Context, *domain.Order) error {
	return nil
}

func (Noop) PublishStatusChanged(context.Context, uuid.UUID, domain.DeliveryStatus, domain.DeliveryStatus, uuid.UUID) error {
	return nil
}
