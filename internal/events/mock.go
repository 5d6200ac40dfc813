package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
)

// MockPublisher records published events for test assertions.
type MockPublisher struct {
	mu            sync.Mutex
	Placed        []OrderPlaced
	StatusChanges []OrderStatusChanged
	PublishErr    error
}

var _ Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Placed = append(m.Placed, OrderPlaced{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmt:      order.TotalAmt,
		CouponCode:    order.AppliedCouponCode,
		PaymentStatus: string(order.PaymentStatus),
		PlacedAt:      order.CreatedAt,
	})
	return nil
}

func (m *MockPublisher) PublishStatusChanged(_ context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus, actorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.StatusChanges = append(m.StatusChanges, OrderStatusChanged{
		OrderID: orderID,
		From:    string(from),
		To:      string(to),
		ActorID: actorID,
	})
	return nil
}

// PlacedCount reports how many order-placed events were published.
func (m *MockPublisher) PlacedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Placed)
}
