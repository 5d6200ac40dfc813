package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/verdantmarket/verdant/internal/domain"
)

// NATS publishes events to a NATS connection.
type NATS struct {
	conn *nats.Conn
}

var _ Publisher = (*NATS)(nil)

// NewNATS wraps an established connection.
func NewNATS(conn *nats.Conn) *NATS {
	return &NATS{conn: conn}
}

// Connect dials the NATS server with sane reconnect settings.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func (n *NATS) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	return n.publish(SubjectOrderPlaced, OrderPlaced{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmt:      order.TotalAmt,
		CouponCode:    order.AppliedCouponCode,
		PaymentStatus: string(order.PaymentStatus),
		PlacedAt:      order.CreatedAt,
	})
}

func (n *NATS) PublishStatusChanged(_ context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus, actorID uuid.UUID) error {
	subject := SubjectOrderStatus
	if to == domain.DeliveryDelivered {
		subject = SubjectOrderDelivered
	}
	return n.publish(subject, OrderStatusChanged{
		OrderID: orderID,
		From:    string(from),
		To:      string(to),
		ActorID: actorID,
		At:      time.Now().UTC(),
	})
}
