package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/pricing"
)

// error logs internal failures before responding; recoverable domain errors
// pass through silently.
func (h *Handler) error(c echo.Context, err error) error {
	if domain.IsCode(err, domain.EINTERNAL) {
		h.logger.Error().Err(err).
			Str("op", domain.ErrorOp(err)).
			Str("path", c.Path()).
			Msg("request failed")
	}
	return respondError(c, err)
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
}

type setQuantityRequest struct {
	Quantity int32 `json:"quantity" validate:"gte=0"`
}

type cartLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"productId"`
	ProductName     string          `json:"productName"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	EffectivePrice  decimal.Decimal `json:"effectivePrice"`
	Quantity        int32           `json:"quantity"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

type cartResponse struct {
	Version   int64              `json:"version"`
	Items     []cartLineResponse `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	Total     decimal.Decimal    `json:"total"`
	Savings   decimal.Decimal    `json:"savings"`
	ItemCount int                `json:"itemCount"`
}

func newCartResponse(summary *domain.CartSummary) cartResponse {
	items := make([]cartLineResponse, 0, len(summary.Items))
	for _, it := range summary.Items {
		items = append(items, cartLineResponse{
			ID:              it.ID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductName,
			Price:           pricing.RoundDisplay(it.Price),
			DiscountPercent: it.DiscountPercent,
			EffectivePrice:  pricing.RoundDisplay(pricing.EffectivePrice(it.Price, it.DiscountPercent)),
			Quantity:        it.Quantity,
			LineTotal:       pricing.RoundDisplay(pricing.LineTotal(it.Price, it.DiscountPercent, it.Quantity)),
		})
	}
	return cartResponse{
		Version:   summary.Version,
		Items:     items,
		Subtotal:  pricing.RoundDisplay(summary.Subtotal),
		Total:     pricing.RoundDisplay(summary.Total),
		Savings:   pricing.RoundDisplay(summary.Savings),
		ItemCount: summary.ItemCount,
	}
}

func (h *Handler) getCart(c echo.Context) error {
	summary, err := h.cart.Summary(c.Request().Context(), actorID(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Cart retrieved", newCartResponse(summary))
}

func (h *Handler) addCartItem(c echo.Context) error {
	var req addCartItemRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("cart.add", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return h.error(c, domain.Invalid("cart.add", "invalid product id"))
	}

	summary, err := h.cart.Add(c.Request().Context(), actorID(c), productID)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusCreated, "Item added to cart", newCartResponse(summary))
}

func (h *Handler) setCartItemQuantity(c echo.Context) error {
	lineID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		return h.error(c, domain.Invalid("cart.set_quantity", "invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	summary, err := h.cart.SetQuantity(c.Request().Context(), actorID(c), lineID, req.Quantity)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Cart updated", newCartResponse(summary))
}

func (h *Handler) removeCartItem(c echo.Context) error {
	lineID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	summary, err := h.cart.Remove(c.Request().Context(), actorID(c), lineID)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Item removed from cart", newCartResponse(summary))
}

func (h *Handler) clearCart(c echo.Context) error {
	if err := h.cart.Clear(c.Request().Context(), actorID(c)); err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Cart cleared", nil)
}

func (h *Handler) getProduct(c echo.Context) error {
	productID, err := pathID(c)
	if err != nil {
		return h.error(c, err)
	}

	product, err := h.catalog.GetProduct(c.Request().Context(), productID)
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Product retrieved", product)
}

func (h *Handler) listAddresses(c echo.Context) error {
	addresses, err := h.addresses.ListActiveAddresses(c.Request().Context(), actorID(c))
	if err != nil {
		return h.error(c, err)
	}
	return respond(c, http.StatusOK, "Addresses retrieved", addresses)
}
