package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/events"
	"github.com/verdantmarket/verdant/internal/repository"
	"github.com/verdantmarket/verdant/internal/service"
)

func seedOrder(repo *repository.Mock, status domain.DeliveryStatus, riderID *uuid.UUID) domain.Order {
	order := domain.Order{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		SubTotalAmt:    d("180"),
		TotalAmt:       d("144"),
		PaymentStatus:  domain.PaymentCashOnDelivery,
		DeliveryStatus: status,
		RiderID:        riderID,
		CreatedAt:      time.Now().UTC(),
	}
	repo.SeedOrder(order)
	return order
}

func Test_MarkProcessing(t *testing.T) {
	tests := []struct {
		name        string
		status      domain.DeliveryStatus
		actor       domain.ActorRole
		expected    error
		explanation string
	}{
		{
			name:        "admin moves placed order",
			status:      domain.DeliveryPlaced,
			actor:       domain.RoleAdmin,
			expected:    nil,
			explanation: "Placed -> Processing is the only legal entry",
		},
		{
			name:        "seller moves placed order",
			status:      domain.DeliveryPlaced,
			actor:       domain.RoleSeller,
			expected:    nil,
			explanation: "sellers carry admin-level order authority",
		},
		{
			name:        "customer is rejected",
			status:      domain.DeliveryPlaced,
			actor:       domain.RoleCustomer,
			expected:    domain.ErrRoleNotPermitted,
			explanation: "administrative transition",
		},
		{
			name:        "rider is rejected",
			status:      domain.DeliveryPlaced,
			actor:       domain.RoleRider,
			expected:    domain.ErrRoleNotPermitted,
			explanation: "administrative transition",
		},
		{
			name:        "already shipped",
			status:      domain.DeliveryShipped,
			actor:       domain.RoleAdmin,
			expected:    domain.ErrInvalidTransition,
			explanation: "no backward move from Shipped",
		},
		{
			name:        "already delivered",
			status:      domain.DeliveryDelivered,
			actor:       domain.RoleAdmin,
			expected:    domain.ErrAlreadyDelivered,
			explanation: "terminal orders report the terminal conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMock()
			order := seedOrder(repo, tt.status, nil)
			svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

			got, err := svc.MarkProcessing(context.Background(), order.ID, tt.actor)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected, tt.explanation)
				return
			}
			require.NoError(t, err, tt.explanation)
			assert.Equal(t, domain.DeliveryProcessing, got.DeliveryStatus)
		})
	}
}

func Test_MarkProcessing_UnknownOrder(t *testing.T) {
	svc := service.NewOrderService(repository.NewMock(), &events.MockPublisher{}, zerolog.Nop())

	_, err := svc.MarkProcessing(context.Background(), uuid.New(), domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func Test_MarkShipped(t *testing.T) {
	repo := repository.NewMock()
	order := seedOrder(repo, domain.DeliveryProcessing, nil)
	publisher := &events.MockPublisher{}
	svc := service.NewOrderService(repo, publisher, zerolog.Nop())

	got, err := svc.MarkShipped(context.Background(), order.ID, domain.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryShipped, got.DeliveryStatus)
	require.Len(t, publisher.StatusChanges, 1)
	assert.Equal(t, string(domain.DeliveryProcessing), publisher.StatusChanges[0].From)
	assert.Equal(t, string(domain.DeliveryShipped), publisher.StatusChanges[0].To)

	_, err = svc.MarkShipped(context.Background(), order.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "Shipped -> Shipped is not a legal move")
}

func Test_Accept_AssignsRiderExclusively(t *testing.T) {
	repo := repository.NewMock()
	order := seedOrder(repo, domain.DeliveryPlaced, nil)
	svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

	riderA, riderB := uuid.New(), uuid.New()

	got, err := svc.Accept(context.Background(), order.ID, riderA)
	require.NoError(t, err)
	require.NotNil(t, got.RiderID)
	assert.Equal(t, riderA, *got.RiderID)

	_, err = svc.Accept(context.Background(), order.ID, riderB)
	assert.ErrorIs(t, err, domain.ErrAlreadyAssigned, "second claim loses")

	_, err = svc.Accept(context.Background(), uuid.New(), riderB)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// Test_Accept_ConcurrentClaimsHaveOneWinner races several riders for the same
// order; the conditional assignment admits exactly one.
func Test_Accept_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	repo := repository.NewMock()
	order := seedOrder(repo, domain.DeliveryPlaced, nil)
	svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

	const riders = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < riders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Accept(context.Background(), order.ID, uuid.New()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one rider may claim the order")
}

func Test_SetEstimatedTime(t *testing.T) {
	riderID := uuid.New()
	repo := repository.NewMock()
	order := seedOrder(repo, domain.DeliveryShipped, &riderID)
	svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

	got, err := svc.SetEstimatedTime(context.Background(), order.ID, riderID, 25)
	require.NoError(t, err)
	require.NotNil(t, got.EstimatedMinutes)
	assert.Equal(t, int32(25), *got.EstimatedMinutes)

	_, err = svc.SetEstimatedTime(context.Background(), order.ID, uuid.New(), 25)
	assert.ErrorIs(t, err, domain.ErrNotAssignedRider, "only the assigned rider may estimate")

	_, err = svc.SetEstimatedTime(context.Background(), order.ID, riderID, 0)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = svc.SetEstimatedTime(context.Background(), uuid.New(), riderID, 25)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func Test_MarkDelivered(t *testing.T) {
	riderID := uuid.New()

	t.Run("assigned rider delivers", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryShipped, &riderID)
		publisher := &events.MockPublisher{}
		svc := service.NewOrderService(repo, publisher, zerolog.Nop())

		got, err := svc.MarkDelivered(context.Background(), order.ID, riderID, domain.RoleRider)
		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryDelivered, got.DeliveryStatus)
		require.Len(t, publisher.StatusChanges, 1)
		assert.Equal(t, string(domain.DeliveryDelivered), publisher.StatusChanges[0].To)
	})

	t.Run("unassigned rider is rejected", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryShipped, &riderID)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		_, err := svc.MarkDelivered(context.Background(), order.ID, uuid.New(), domain.RoleRider)
		assert.ErrorIs(t, err, domain.ErrNotAssignedRider)
	})

	t.Run("admin can deliver without assignment", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryPlaced, nil)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		got, err := svc.MarkDelivered(context.Background(), order.ID, uuid.New(), domain.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryDelivered, got.DeliveryStatus)
	})

	t.Run("customer is rejected", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryShipped, &riderID)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		_, err := svc.MarkDelivered(context.Background(), order.ID, uuid.New(), domain.RoleCustomer)
		assert.ErrorIs(t, err, domain.ErrRoleNotPermitted)
	})

	t.Run("second delivery is rejected", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryShipped, &riderID)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		_, err := svc.MarkDelivered(context.Background(), order.ID, riderID, domain.RoleRider)
		require.NoError(t, err)

		_, err = svc.MarkDelivered(context.Background(), order.ID, riderID, domain.RoleRider)
		assert.ErrorIs(t, err, domain.ErrAlreadyDelivered, "completion is rejected once terminal, not repeated")
	})
}

func Test_ConfirmPayment(t *testing.T) {
	t.Run("pending online order becomes paid", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryPlaced, nil)
		order.PaymentStatus = domain.PaymentPending
		repo.SeedOrder(order)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		got, err := svc.ConfirmPayment(context.Background(), order.ID, domain.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

		_, err = svc.ConfirmPayment(context.Background(), order.ID, domain.RoleAdmin)
		assert.ErrorIs(t, err, domain.ErrPaymentNotPending, "confirmation is not repeatable")
	})

	t.Run("cod order is rejected", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryPlaced, nil)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		_, err := svc.ConfirmPayment(context.Background(), order.ID, domain.RoleAdmin)
		assert.ErrorIs(t, err, domain.ErrPaymentNotPending)
	})

	t.Run("concurrent confirms have one winner", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryPlaced, nil)
		order.PaymentStatus = domain.PaymentPending
		repo.SeedOrder(order)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		const confirms = 4
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < confirms; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.ConfirmPayment(context.Background(), order.ID, domain.RoleAdmin); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins, "the conditional update admits exactly one confirmation")
	})

	t.Run("non-administrative actor is rejected", func(t *testing.T) {
		repo := repository.NewMock()
		order := seedOrder(repo, domain.DeliveryPlaced, nil)
		svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

		_, err := svc.ConfirmPayment(context.Background(), order.ID, domain.RoleRider)
		assert.ErrorIs(t, err, domain.ErrRoleNotPermitted)
	})
}

func Test_ListOrders_Filters(t *testing.T) {
	repo := repository.NewMock()
	riderID := uuid.New()

	assigned := seedOrder(repo, domain.DeliveryShipped, &riderID)
	unassigned := seedOrder(repo, domain.DeliveryPlaced, nil)
	delivered := seedOrder(repo, domain.DeliveryDelivered, nil)

	svc := service.NewOrderService(repo, &events.MockPublisher{}, zerolog.Nop())

	t.Run("unassigned pool excludes assigned and delivered", func(t *testing.T) {
		got, err := svc.ListOrders(context.Background(), domain.OrderFilter{Unassigned: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, unassigned.ID, got[0].ID)
	})

	t.Run("rider sees own assignments", func(t *testing.T) {
		got, err := svc.ListOrders(context.Background(), domain.OrderFilter{RiderID: &riderID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, assigned.ID, got[0].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		status := domain.DeliveryDelivered
		got, err := svc.ListOrders(context.Background(), domain.OrderFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, delivered.ID, got[0].ID)
	})

	t.Run("customer sees own orders", func(t *testing.T) {
		got, err := svc.ListOrders(context.Background(), domain.OrderFilter{UserID: &unassigned.UserID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, unassigned.ID, got[0].ID)
	})
}
