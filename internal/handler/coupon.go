package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/pricing"
)

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

type appliedCouponResponse struct {
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
	CartVersion    int64           `json:"cartVersion"`
}

func (h *Handler) listCoupons(c echo.Context) error {
	coupons, err := h.coupons.ListEligible(c.Request().Context(), actorID(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Coupons retrieved", coupons)
}

// applyCoupon validates a code against the user's current cart total. Nothing
// is persisted; the client holds the result until checkout re-validates it.
func (h *Handler) applyCoupon(c echo.Context) error {
	var req applyCouponRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("coupon.apply", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	userID := actorID(c)

	summary, err := h.cart.Summary(ctx, userID)
	if err != nil {
		return h.error(c, err)
	}
	if len(summary.Items) == 0 {
		return h.error(c, domain.ErrCartEmpty)
	}

	result, err := h.coupons.Validate(ctx, userID, req.Code, summary.Total)
	if err != nil {
		return h.error(c, err)
	}

	return respond(c, http.StatusOK, "Coupon applied", appliedCouponResponse{
		Code:           result.Coupon.Code,
		Description:    result.Coupon.Description,
		DiscountAmount: pricing.RoundDisplay(result.DiscountAmount),
		FinalAmount:    pricing.RoundDisplay(result.FinalAmount),
		CartVersion:    result.CartVersion,
	})
}
