package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/pricing"
)

type checkoutRequest struct {
	AddressID  string `json:"addressId" validate:"required,uuid"`
	CouponCode string `json:"couponCode"`
	// Resumed carries a coupon result restored from an earlier session.
	// It is re-validated server-side before the order is priced.
	Resumed *resumedCouponRequest `json:"resumed"`
}

type resumedCouponRequest struct {
	Code        string          `json:"code" validate:"required"`
	FinalAmount decimal.Decimal `json:"finalAmount"`
	CartVersion int64           `json:"cartVersion"`
}

type orderItemResponse struct {
	ProductID       uuid.UUID       `json:"productId"`
	ProductName     string          `json:"productName"`
	Quantity        int32           `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type orderResponse struct {
	ID                uuid.UUID              `json:"id"`
	Items             []orderItemResponse    `json:"items"`
	Address           domain.AddressSnapshot `json:"address"`
	SubTotalAmt       decimal.Decimal        `json:"subTotalAmt"`
	TotalAmt          decimal.Decimal        `json:"totalAmt"`
	AppliedCouponCode string                 `json:"appliedCouponCode,omitempty"`
	PaymentStatus     domain.PaymentStatus   `json:"paymentStatus"`
	DeliveryStatus    domain.DeliveryStatus  `json:"deliveryStatus"`
	RiderID           *uuid.UUID             `json:"riderId,omitempty"`
	EstimatedMinutes  *int32                 `json:"estimatedMinutes,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

type checkoutResponse struct {
	Order       orderResponse `json:"order"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
}

func newOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Quantity:        it.Quantity,
			Price:           pricing.RoundDisplay(it.Price),
			DiscountPercent: it.DiscountPercent,
		})
	}
	return orderResponse{
		ID:                o.ID,
		Items:             items,
		Address:           o.Address,
		SubTotalAmt:       pricing.RoundDisplay(o.SubTotalAmt),
		TotalAmt:          pricing.RoundDisplay(o.TotalAmt),
		AppliedCouponCode: o.AppliedCouponCode,
		PaymentStatus:     o.PaymentStatus,
		DeliveryStatus:    o.DeliveryStatus,
		RiderID:           o.RiderID,
		EstimatedMinutes:  o.EstimatedMinutes,
		CreatedAt:         o.CreatedAt,
	}
}

func newOrderListResponse(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}

func (h *Handler) checkoutCOD(c echo.Context) error {
	return h.submitCheckout(c, domain.PaymentMethodCOD)
}

func (h *Handler) checkoutOnline(c echo.Context) error {
	return h.submitCheckout(c, domain.PaymentMethodOnline)
}

func (h *Handler) submitCheckout(c echo.Context, method domain.PaymentMethod) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("checkout.submit", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		return h.error(c, domain.ErrNoAddressSelected)
	}

	params := domain.SubmitParams{
		UserID:        actorID(c),
		PaymentMethod: method,
		AddressID:     addressID,
		CouponCode:    req.CouponCode,
	}
	if req.Resumed != nil {
		params.Resumed = &domain.AppliedCouponResult{
			Coupon:      domain.Coupon{Code: req.Resumed.Code},
			FinalAmount: req.Resumed.FinalAmount,
			CartVersion: req.Resumed.CartVersion,
		}
	}

	result, err := h.checkout.Submit(c.Request().Context(), params)
	if err != nil {
		return h.error(c, err)
	}

	return respond(c, http.StatusCreated, "Order placed", checkoutResponse{
		Order:       newOrderResponse(result.Order),
		RedirectURL: result.RedirectURL,
	})
}

func (h *Handler) listMyOrders(c echo.Context) error {
	userID := actorID(c)
	orders, err := h.orders.ListOrders(c.Request().Context(), domain.OrderFilter{UserID: &userID})
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Orders retrieved", newOrderListResponse(orders))
}

// getMyOrder backs order tracking. Customers only see their own orders;
// administrative roles can inspect any order.
func (h *Handler) getMyOrder(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return h.error(c, err)
	}
	if order.UserID != actorID(c) && !actorRole(c).Administrative() {
		return h.error(c, domain.ErrOrderNotFound)
	}
	return respond(c, http.StatusOK, "Order retrieved", newOrderResponse(order))
}
