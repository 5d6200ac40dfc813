package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/events"
	"github.com/verdantmarket/verdant/internal/payment"
	"github.com/verdantmarket/verdant/internal/pricing"
	"github.com/verdantmarket/verdant/internal/repository"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

type checkoutService struct {
	repo      repository.Querier
	coupons   domain.CouponService
	payments  payment.Provider
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time

	// submits collapses concurrent submissions per user so a double-click
	// yields one order shared by both callers.
	submits singleflight.Group
}

// NewCheckoutService creates the coordinator that turns a cart, an address
// and an optional coupon into an order.
func NewCheckoutService(
	repo repository.Querier,
	coupons domain.CouponService,
	payments payment.Provider,
	publisher events.Publisher,
	logger zerolog.Logger,
) domain.CheckoutService {
	return &checkoutService{
		repo:      repo,
		coupons:   coupons,
		payments:  payments,
		publisher: publisher,
		logger:    logger.With().Str("service", "checkout").Logger(),
		now:       time.Now,
	}
}

func (s *checkoutService) Submit(ctx context.Context, params domain.SubmitParams) (*domain.SubmitResult, error) {
	v, err, _ := s.submits.Do(params.UserID.String(), func() (any, error) {
		return s.submit(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.SubmitResult), nil
}

func (s *checkoutService) submit(ctx context.Context, params domain.SubmitParams) (*domain.SubmitResult, error) {
	const op = "checkout.submit"

	if params.PaymentMethod != domain.PaymentMethodCOD && params.PaymentMethod != domain.PaymentMethodOnline {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown payment method: %s", params.PaymentMethod)
	}

	lines, err := s.repo.ListCartLines(ctx, params.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}
	if len(lines) == 0 {
		telemetry.CheckoutFailures.WithLabelValues("empty_cart").Inc()
		return nil, domain.ErrCartEmpty
	}

	address, err := s.selectAddress(ctx, params.UserID, params.AddressID)
	if err != nil {
		telemetry.CheckoutFailures.WithLabelValues("no_address").Inc()
		return nil, err
	}

	// The order subtotal is the item-discounted cart total; the coupon, if
	// any, applies on top of it.
	subTotal := pricing.CartTotal(lines)
	total := subTotal

	couponCode := params.CouponCode
	if couponCode == "" && params.Resumed != nil {
		couponCode = params.Resumed.Coupon.Code
	}

	var applied *domain.AppliedCouponResult
	if couponCode != "" {
		applied, err = s.coupons.Validate(ctx, params.UserID, couponCode, subTotal)
		if err != nil {
			telemetry.CheckoutFailures.WithLabelValues("coupon").Inc()
			return nil, err
		}
		// A resumed result is never trusted as-is. If the cart moved on or
		// the recomputed amounts differ, the user must re-apply.
		if params.Resumed != nil {
			if applied.CartVersion != params.Resumed.CartVersion ||
				!applied.FinalAmount.Equal(params.Resumed.FinalAmount) {
				telemetry.CheckoutFailures.WithLabelValues("coupon_stale").Inc()
				return nil, domain.ErrCouponStale
			}
		}
		total = applied.FinalAmount
	}

	if err := s.reserveStock(ctx, lines); err != nil {
		telemetry.CheckoutFailures.WithLabelValues("stock").Inc()
		return nil, err
	}

	order := s.buildOrder(params, lines, address, subTotal, total, applied)

	var redirectURL string
	if params.PaymentMethod == domain.PaymentMethodOnline {
		session, err := s.payments.InitiateCheckout(ctx, order)
		if err != nil {
			s.releaseStock(ctx, lines)
			telemetry.CheckoutFailures.WithLabelValues("payment").Inc()
			return nil, domain.Unavailable(err, op, "payment provider is unavailable")
		}
		redirectURL = session.URL
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.releaseStock(ctx, lines)
		return nil, domain.Internal(err, op, "failed to create order")
	}

	// The order exists from here on. Post-creation bookkeeping failures are
	// logged, never surfaced as a checkout failure.
	if applied != nil {
		if err := s.repo.IncrementRedemption(ctx, params.UserID, applied.Coupon.ID); err != nil {
			s.logger.Error().Err(err).
				Str("order_id", order.ID.String()).
				Str("coupon_code", applied.Coupon.Code).
				Msg("failed to record coupon redemption")
		} else {
			telemetry.CouponRedemptions.Inc()
		}
	}
	if err := s.repo.ClearCart(ctx, params.UserID); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to clear cart after order")
	}
	if _, err := s.repo.BumpCartVersion(ctx, params.UserID); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to bump cart version after order")
	}
	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to publish order placed event")
	}

	telemetry.OrdersPlaced.WithLabelValues(string(params.PaymentMethod)).Inc()
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", params.UserID.String()).
		Str("payment_method", string(params.PaymentMethod)).
		Str("total_amt", order.TotalAmt.String()).
		Msg("order placed")

	return &domain.SubmitResult{Order: order, RedirectURL: redirectURL}, nil
}

func (s *checkoutService) selectAddress(ctx context.Context, userID, addressID uuid.UUID) (*domain.Address, error) {
	const op = "checkout.submit"

	if addressID == uuid.Nil {
		return nil, domain.ErrNoAddressSelected
	}
	addresses, err := s.repo.ListActiveAddresses(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load addresses")
	}
	for i := range addresses {
		if addresses[i].ID == addressID {
			return &addresses[i], nil
		}
	}
	return nil, domain.ErrNoAddressSelected
}

// reserveStock decrements stock per line; on the first failure it releases
// what was already taken so a rejected checkout leaves the catalog unchanged.
func (s *checkoutService) reserveStock(ctx context.Context, lines []domain.LineItem) error {
	for i, line := range lines {
		if err := s.repo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.releaseStock(ctx, lines[:i])
			if errors.Is(err, repository.ErrNoRowsAffected) {
				return domain.ErrExceedsStock
			}
			return domain.Internal(err, "checkout.submit", "failed to reserve stock")
		}
	}
	return nil
}

func (s *checkoutService) releaseStock(ctx context.Context, lines []domain.LineItem) {
	for _, line := range lines {
		if err := s.repo.RestoreStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.logger.Error().Err(err).
				Str("product_id", line.ProductID.String()).
				Int32("quantity", line.Quantity).
				Msg("failed to restore stock")
		}
	}
}

func (s *checkoutService) buildOrder(
	params domain.SubmitParams,
	lines []domain.LineItem,
	address *domain.Address,
	subTotal, total decimal.Decimal,
	applied *domain.AppliedCouponResult,
) *domain.Order {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			Quantity:        line.Quantity,
			Price:           line.Price,
			DiscountPercent: line.DiscountPercent,
		})
	}

	paymentStatus := domain.PaymentCashOnDelivery
	if params.PaymentMethod == domain.PaymentMethodOnline {
		paymentStatus = domain.PaymentPending
	}

	couponCode := ""
	if applied != nil {
		couponCode = applied.Coupon.Code
	}

	return &domain.Order{
		ID:                uuid.New(),
		UserID:            params.UserID,
		Items:             items,
		Address:           address.Snapshot(),
		SubTotalAmt:       subTotal,
		TotalAmt:          total,
		AppliedCouponCode: couponCode,
		PaymentStatus:     paymentStatus,
		DeliveryStatus:    domain.DeliveryPlaced,
		CreatedAt:         s.now().UTC(),
	}
}
