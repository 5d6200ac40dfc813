package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/repository"
)

type couponAdminService struct {
	repo   repository.Querier
	logger zerolog.Logger
}

// NewCouponAdminService creates the administrative coupon manager.
func NewCouponAdminService(repo repository.Querier, logger zerolog.Logger) domain.CouponAdminService {
	return &couponAdminService{
		repo:   repo,
		logger: logger.With().Str("service", "coupon_admin").Logger(),
	}
}

func (s *couponAdminService) CreateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	const op = "coupon_admin.create"

	if err := validateCoupon(op, coupon); err != nil {
		return err
	}
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}

	if err := s.repo.CreateCoupon(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Conflict(op, "a coupon with this code already exists")
		}
		return domain.Internal(err, op, "failed to create coupon")
	}

	s.logger.Info().Str("code", coupon.Code).Msg("coupon created")
	return nil
}

func (s *couponAdminService) UpdateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	const op = "coupon_admin.update"

	if err := validateCoupon(op, coupon); err != nil {
		return err
	}

	if err := s.repo.UpdateCoupon(ctx, coupon); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.ErrCouponNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return domain.Conflict(op, "a coupon with this code already exists")
		}
		return domain.Internal(err, op, "failed to update coupon")
	}
	return nil
}

func (s *couponAdminService) DeleteCoupon(ctx context.Context, couponID uuid.UUID) error {
	const op = "coupon_admin.delete"

	if err := s.repo.DeleteCoupon(ctx, couponID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrCouponNotFound
		}
		return domain.Internal(err, op, "failed to delete coupon")
	}
	return nil
}

func (s *couponAdminService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.repo.ListActiveCoupons(ctx)
	if err != nil {
		return nil, domain.Internal(err, "coupon_admin.list", "failed to list coupons")
	}
	return coupons, nil
}

func validateCoupon(op string, c *domain.Coupon) error {
	if strings.TrimSpace(c.Code) == "" {
		return domain.Invalid(op, "coupon code is required")
	}
	if c.DiscountType != domain.DiscountPercentage && c.DiscountType != domain.DiscountFixed {
		return domain.Errorf(domain.EINVALID, op, "unknown discount type: %s", c.DiscountType)
	}
	if !c.DiscountValue.IsPositive() {
		return domain.Invalid(op, "discount value must be positive")
	}
	if c.MinOrderAmt.IsNegative() {
		return domain.Invalid(op, "minimum order amount must not be negative")
	}
	if c.MaxDiscountAmt != nil && !c.MaxDiscountAmt.IsPositive() {
		return domain.Invalid(op, "maximum discount amount must be positive")
	}
	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return domain.Invalid(op, "usage limit must be positive")
	}
	if !c.ValidUntil.After(c.ValidFrom) {
		return domain.Invalid(op, "validity window must end after it starts")
	}
	return nil
}
