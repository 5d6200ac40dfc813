package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantmarket/verdant/internal/domain"
)

type estimateRequest struct {
	Minutes int32 `json:"minutes" validate:"required,gt=0"`
}

func (h *Handler) listUnassignedOrders(c echo.Context) error {
	orders, err := h.orders.ListOrders(c.Request().Context(), domain.OrderFilter{Unassigned: true})
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Unassigned orders retrieved", newOrderListResponse(orders))
}

func (h *Handler) listRiderOrders(c echo.Context) error {
	riderID := actorID(c)
	orders, err := h.orders.ListOrders(c.Request().Context(), domain.OrderFilter{RiderID: &riderID})
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Assigned orders retrieved", newOrderListResponse(orders))
}

func (h *Handler) acceptOrder(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.Accept(c.Request().Context(), orderID, actorID(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Order accepted", newOrderResponse(order))
}

func (h *Handler) setEstimate(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	var req estimateRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("order.set_estimated_time", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.orders.SetEstimatedTime(c.Request().Context(), orderID, actorID(c), req.Minutes)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Estimate recorded", newOrderResponse(order))
}

func (h *Handler) riderMarkDelivered(c echo.Context) error {
	orderID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	order, err := h.orders.MarkDelivered(c.Request().Context(), orderID, actorID(c), domain.RoleRider)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Order delivered", newOrderResponse(order))
}
