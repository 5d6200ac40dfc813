// Package handler exposes the storefront, rider and admin HTTP APIs on echo.
// Actor identity arrives in X-User-ID and X-User-Role headers; session
// handling itself is an upstream concern.
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/verdantmarket/verdant/internal/domain"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	ctxUserID = "user_id"
	ctxRole   = "user_role"
)

// Handler carries the service collaborators behind every route.
type Handler struct {
	cart        domain.CartService
	coupons     domain.CouponService
	couponAdmin domain.CouponAdminService
	checkout    domain.CheckoutService
	orders      domain.OrderLifecycleService
	catalog     domain.CatalogService
	addresses   domain.AddressService
	logger      zerolog.Logger
}

// New assembles the handler from its service collaborators.
func New(
	cart domain.CartService,
	coupons domain.CouponService,
	couponAdmin domain.CouponAdminService,
	checkout domain.CheckoutService,
	orders domain.OrderLifecycleService,
	catalog domain.CatalogService,
	addresses domain.AddressService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		cart:        cart,
		coupons:     coupons,
		couponAdmin: couponAdmin,
		checkout:    checkout,
		orders:      orders,
		catalog:     catalog,
		addresses:   addresses,
		logger:      logger.With().Str("component", "handler").Logger(),
	}
}

// Register mounts every route group on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.Validator = &requestValidator{validate: validator.New()}

	api := e.Group("/api", h.identity)

	api.GET("/products/:id", h.getProduct)
	api.GET("/addresses", h.listAddresses)

	api.GET("/cart", h.getCart)
	api.POST("/cart/items", h.addCartItem)
	api.PUT("/cart/items/:id", h.setCartItemQuantity)
	api.DELETE("/cart/items/:id", h.removeCartItem)
	api.DELETE("/cart", h.clearCart)

	api.GET("/coupons", h.listCoupons)
	api.POST("/coupons/apply", h.applyCoupon)

	api.POST("/checkout/cod", h.checkoutCOD)
	api.POST("/checkout/online", h.checkoutOnline)
	api.GET("/orders", h.listMyOrders)
	api.GET("/orders/:id", h.getMyOrder)

	rider := api.Group("/rider", h.requireRole(domain.RoleRider))
	rider.GET("/orders/unassigned", h.listUnassignedOrders)
	rider.GET("/orders", h.listRiderOrders)
	rider.POST("/orders/:id/accept", h.acceptOrder)
	rider.PUT("/orders/:id/estimate", h.setEstimate)
	rider.PUT("/orders/:id/delivered", h.riderMarkDelivered)

	admin := api.Group("/admin", h.requireRole(domain.RoleAdmin, domain.RoleSeller))
	admin.GET("/orders", h.listAllOrders)
	admin.PUT("/orders/:id/processing", h.markProcessing)
	admin.PUT("/orders/:id/shipped", h.markShipped)
	admin.PUT("/orders/:id/delivered", h.adminMarkDelivered)
	admin.PUT("/orders/:id/paid", h.confirmPayment)
	admin.GET("/coupons", h.adminListCoupons)
	admin.POST("/coupons", h.createCoupon)
	admin.PUT("/coupons/:id", h.updateCoupon)
	admin.DELETE("/coupons/:id", h.deleteCoupon)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// identity resolves the acting user from the gateway headers.
func (h *Handler) identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := uuid.Parse(c.Request().Header.Get(headerUserID))
		if err != nil {
			return respondError(c, &domain.Error{
				Code:    domain.EUNAUTHORIZED,
				Message: "Authentication required",
			})
		}

		role := domain.ActorRole(c.Request().Header.Get(headerUserRole))
		if role == "" {
			role = domain.RoleCustomer
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		return next(c)
	}
}

func (h *Handler) requireRole(roles ...domain.ActorRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := actorRole(c)
			for _, r := range roles {
				if actor == r {
					return next(c)
				}
			}
			return respondError(c, domain.ErrRoleNotPermitted)
		}
	}
}

func actorID(c echo.Context) uuid.UUID {
	id, _ := c.Get(ctxUserID).(uuid.UUID)
	return id
}

func actorRole(c echo.Context) domain.ActorRole {
	role, _ := c.Get(ctxRole).(domain.ActorRole)
	return role
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path_id", "invalid id in path")
	}
	return id, nil
}

// response is the envelope every endpoint returns.
type response struct {
	Message string `json:"message"`
	Error   bool   `json:"error"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, response{
		Message: message,
		Success: true,
		Data:    data,
	})
}

func respondError(c echo.Context, err error) error {
	return c.JSON(httpStatus(domain.ErrorCode(err)), response{
		Message: domain.ErrorMessage(err),
		Error:   true,
	})
}

// httpStatus maps domain error codes onto HTTP statuses.
func httpStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT, domain.ESTOCK:
		return http.StatusConflict
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
