package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/repository"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

type couponService struct {
	repo   repository.Querier
	logger zerolog.Logger
	now    func() time.Time
}

// NewCouponService creates the coupon evaluator. Validation is read-only;
// redemption counts move only when checkout places an order.
func NewCouponService(repo repository.Querier, logger zerolog.Logger) domain.CouponService {
	return &couponService{
		repo:   repo,
		logger: logger.With().Str("service", "coupon").Logger(),
		now:    time.Now,
	}
}

// Validate applies the eligibility rules in a fixed order so the user always
// sees the most specific failure: existence, validity window, order minimum,
// then usage limit.
func (s *couponService) Validate(ctx context.Context, userID uuid.UUID, code string, orderAmount decimal.Decimal) (*domain.AppliedCouponResult, error) {
	const op = "coupon.validate"

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.Invalid(op, "coupon code is required")
	}

	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			telemetry.CouponRejections.WithLabelValues("not_found").Inc()
			return nil, domain.ErrCouponNotFound
		}
		return nil, domain.Internal(err, op, "failed to load coupon")
	}

	now := s.now().UTC()
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		telemetry.CouponRejections.WithLabelValues("expired").Inc()
		return nil, domain.ErrCouponExpired
	}

	if orderAmount.LessThan(coupon.MinOrderAmt) {
		telemetry.CouponRejections.WithLabelValues("below_minimum").Inc()
		return nil, domain.ErrCouponBelowMinimum
	}

	if coupon.UsageLimit != nil {
		count, err := s.repo.GetRedemptionCount(ctx, userID, coupon.ID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to read redemption count")
		}
		if count >= *coupon.UsageLimit {
			telemetry.CouponRejections.WithLabelValues("limit_reached").Inc()
			return nil, domain.ErrCouponLimitReached
		}
	}

	discount := discountAmount(coupon, orderAmount)
	final := orderAmount.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	version, err := s.repo.GetCartVersion(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read cart version")
	}

	return &domain.AppliedCouponResult{
		Coupon:         *coupon,
		Valid:          true,
		DiscountAmount: discount,
		FinalAmount:    final,
		CartVersion:    version,
	}, nil
}

// discountAmount computes the coupon's monetary effect on orderAmount.
// Percentage discounts are capped by MaxDiscountAmt when set; fixed
// discounts never exceed the order amount.
func discountAmount(coupon *domain.Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	switch coupon.DiscountType {
	case domain.DiscountPercentage:
		d := orderAmount.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscountAmt != nil && d.GreaterThan(*coupon.MaxDiscountAmt) {
			d = *coupon.MaxDiscountAmt
		}
		return d
	case domain.DiscountFixed:
		if coupon.DiscountValue.GreaterThan(orderAmount) {
			return orderAmount
		}
		return coupon.DiscountValue
	default:
		return decimal.Zero
	}
}

// ListEligible returns active, in-window coupons the user can still redeem.
func (s *couponService) ListEligible(ctx context.Context, userID uuid.UUID) ([]domain.Coupon, error) {
	const op = "coupon.list_eligible"

	coupons, err := s.repo.ListActiveCoupons(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list coupons")
	}

	now := s.now().UTC()
	eligible := make([]domain.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
			continue
		}
		if c.UsageLimit != nil {
			count, err := s.repo.GetRedemptionCount(ctx, userID, c.ID)
			if err != nil {
				return nil, domain.Internal(err, op, "failed to read redemption count")
			}
			if count >= *c.UsageLimit {
				continue
			}
		}
		eligible = append(eligible, c)
	}
	return eligible, nil
}
