package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/events"
	"github.com/verdantmarket/verdant/internal/repository"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

type orderService struct {
	repo      repository.Querier
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewOrderService creates the lifecycle owner for placed orders: status
// transitions, rider assignment and delivery estimates.
func NewOrderService(repo repository.Querier, publisher events.Publisher, logger zerolog.Logger) domain.OrderLifecycleService {
	return &orderService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

func (s *orderService) MarkProcessing(ctx context.Context, orderID uuid.UUID, actor domain.ActorRole) (*domain.Order, error) {
	return s.transition(ctx, "order.mark_processing", orderID, actor, domain.DeliveryPlaced, domain.DeliveryProcessing)
}

func (s *orderService) MarkShipped(ctx context.Context, orderID uuid.UUID, actor domain.ActorRole) (*domain.Order, error) {
	return s.transition(ctx, "order.mark_shipped", orderID, actor, domain.DeliveryProcessing, domain.DeliveryShipped)
}

// transition applies an administrative single-step move. The conditional
// update is the arbiter: when it matches no rows the order either does not
// exist or is no longer in `from`, and the follow-up read tells which.
func (s *orderService) transition(ctx context.Context, op string, orderID uuid.UUID, actor domain.ActorRole, from, to domain.DeliveryStatus) (*domain.Order, error) {
	if !actor.Administrative() {
		return nil, domain.ErrRoleNotPermitted
	}

	err := s.repo.TransitionDeliveryStatus(ctx, orderID, from, to)
	if err != nil {
		if !errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, domain.Internal(err, op, "failed to update delivery status")
		}
		order, getErr := s.getOrder(ctx, op, orderID)
		if getErr != nil {
			return nil, getErr
		}
		if order.DeliveryStatus.Terminal() {
			return nil, domain.ErrAlreadyDelivered
		}
		return nil, domain.ErrInvalidTransition
	}

	telemetry.DeliveryTransitions.WithLabelValues(string(to)).Inc()
	s.publishStatus(ctx, orderID, from, to, uuid.Nil)
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("delivery status updated")

	return s.getOrder(ctx, op, orderID)
}

func (s *orderService) Accept(ctx context.Context, orderID, riderID uuid.UUID) (*domain.Order, error) {
	const op = "order.accept"

	err := s.repo.AssignRider(ctx, orderID, riderID)
	if err != nil {
		if !errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, domain.Internal(err, op, "failed to assign rider")
		}
		if _, getErr := s.getOrder(ctx, op, orderID); getErr != nil {
			return nil, getErr
		}
		telemetry.RiderAcceptConflicts.Inc()
		return nil, domain.ErrAlreadyAssigned
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("rider_id", riderID.String()).
		Msg("order accepted by rider")

	return s.getOrder(ctx, op, orderID)
}

func (s *orderService) SetEstimatedTime(ctx context.Context, orderID, riderID uuid.UUID, minutes int32) (*domain.Order, error) {
	const op = "order.set_estimated_time"

	if minutes <= 0 {
		return nil, domain.Invalid(op, "estimated minutes must be positive")
	}

	err := s.repo.SetEstimatedTime(ctx, orderID, riderID, minutes)
	if err != nil {
		if !errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, domain.Internal(err, op, "failed to set estimate")
		}
		if _, getErr := s.getOrder(ctx, op, orderID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrNotAssignedRider
	}

	return s.getOrder(ctx, op, orderID)
}

func (s *orderService) MarkDelivered(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID, actor domain.ActorRole) (*domain.Order, error) {
	const op = "order.mark_delivered"

	order, err := s.getOrder(ctx, op, orderID)
	if err != nil {
		return nil, err
	}
	if order.DeliveryStatus.Terminal() {
		return nil, domain.ErrAlreadyDelivered
	}

	switch {
	case actor.Administrative():
	case actor == domain.RoleRider:
		if !order.Assigned() || *order.RiderID != actorID {
			return nil, domain.ErrNotAssignedRider
		}
	default:
		return nil, domain.ErrRoleNotPermitted
	}

	from := order.DeliveryStatus
	if err := s.repo.MarkDelivered(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, domain.ErrAlreadyDelivered
		}
		return nil, domain.Internal(err, op, "failed to mark delivered")
	}

	telemetry.DeliveryTransitions.WithLabelValues(string(domain.DeliveryDelivered)).Inc()
	s.publishStatus(ctx, orderID, from, domain.DeliveryDelivered, actorID)
	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("actor_id", actorID.String()).
		Str("actor_role", string(actor)).
		Msg("order delivered")

	return s.getOrder(ctx, op, orderID)
}

func (s *orderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, actor domain.ActorRole) (*domain.Order, error) {
	const op = "order.confirm_payment"

	if !actor.Administrative() {
		return nil, domain.ErrRoleNotPermitted
	}

	if err := s.repo.MarkPaid(ctx, orderID); err != nil {
		if !errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, domain.Internal(err, op, "failed to update payment status")
		}
		if _, getErr := s.getOrder(ctx, op, orderID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrPaymentNotPending
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Msg("payment confirmed")

	return s.getOrder(ctx, op, orderID)
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.getOrder(ctx, "order.get", orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	return orders, nil
}

func (s *orderService) getOrder(ctx context.Context, op string, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}
	return order, nil
}

func (s *orderService) publishStatus(ctx context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus, actorID uuid.UUID) {
	if err := s.publisher.PublishStatusChanged(ctx, orderID, from, to, actorID); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", orderID.String()).
			Str("to", string(to)).
			Msg("failed to publish status change")
	}
}
