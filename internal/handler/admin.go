package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
)

type couponRequest struct {
	Code           string           `json:"code" validate:"required"`
	Description    string           `json:"description"`
	DiscountType   string           `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue  decimal.Decimal  `json:"discountValue" validate:"required"`
	MinOrderAmt    decimal.Decimal  `json:"minOrderAmt"`
	MaxDiscountAmt *decimal.Decimal `json:"maxDiscountAmt"`
	UsageLimit     *int32           `json:"usageLimit"`
	ValidFrom      time.Time        `json:"validFrom" validate:"required"`
	ValidUntil     time.Time        `json:"validUntil" validate:"required"`
	Active         bool             `json:"active"`
}

func (r *couponRequest) toDomain() *domain.Coupon {
	return &domain.Coupon{
		Code:           r.Code,
		Description:    r.Description,
		DiscountType:   domain.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		MinOrderAmt:    r.MinOrderAmt,
		MaxDiscountAmt: r.MaxDiscountAmt,
		UsageLimit:     r.UsageLimit,
		ValidFrom:      r.ValidFrom,
		ValidUntil:     r.ValidUntil,
		Active:         r.Active,
	}
}

func (h *Handler) listAllOrders(c echo.Context) error {
	filter := domain.OrderFilter{}
	if raw := c.QueryParam("status"); raw != "" {
		status := domain.DeliveryStatus(raw)
		if !status.IsValid() {
			return h.error(c, domain.Invalid("order.list", "unknown delivery status"))
		}
		filter.Status = &status
	}

	orders, err := h.orders.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Orders retrieved", newOrderListResponse(orders))
}

func (h *Handler) markProcessing(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.MarkProcessing(c.Request().Context(), orderID, actorRole(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Order moved to processing", newOrderResponse(order))
}

func (h *Handler) markShipped(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.MarkShipped(c.Request().Context(), orderID, actorRole(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Order marked shipped", newOrderResponse(order))
}

func (h *Handler) adminMarkDelivered(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.MarkDelivered(c.Request().Context(), orderID, actorID(c), actorRole(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Order delivered", newOrderResponse(order))
}

func (h *Handler) confirmPayment(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.ConfirmPayment(c.Request().Context(), orderID, actorRole(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Payment confirmed", newOrderResponse(order))
}

func (h *Handler) adminListCoupons(c echo.Context) error {
	coupons, err := h.couponAdmin.ListCoupons(c.Request().Context())
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Coupons retrieved", coupons)
}

func (h *Handler) createCoupon(c echo.Context) error {
	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("coupon_admin.create", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	coupon := req.toDomain()
	if err := h.couponAdmin.CreateCoupon(c.Request().Context(), coupon); err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusCreated, "Coupon created", coupon)
}

func (h *Handler) updateCoupon(c echo.Context) error {
	couponID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("coupon_admin.update", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	coupon := req.toDomain()
	coupon.ID = couponID
	if err := h.couponAdmin.UpdateCoupon(c.Request().Context(), coupon); err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Coupon updated", coupon)
}

func (h *Handler) deleteCoupon(c echo.Context) error {
	couponID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	if err := h.couponAdmin.DeleteCoupon(c.Request().Context(), couponID); err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Coupon deleted", nil)
}
