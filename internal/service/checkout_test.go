package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/events"
	"github.com/verdantmarket/verdant/internal/payment"
	"github.com/verdantmarket/verdant/internal/repository"
	"github.com/verdantmarket/verdant/internal/service"
)

type checkoutFixture struct {
	repo      *repository.Mock
	provider  *payment.MockProvider
	publisher *events.MockPublisher
	checkout  domain.CheckoutService
	userID    uuid.UUID
	product   domain.Product
	addressID uuid.UUID
}

// newCheckoutFixture seeds a cart holding 2 units of a 100-priced product at
// 10% off (item-discounted total 180), one active address, and the SAVE20
// coupon (20% off).
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	repo := repository.NewMock()
	provider := payment.NewMockProvider()
	publisher := &events.MockPublisher{}
	coupons := service.NewCouponService(repo, zerolog.Nop())
	checkout := service.NewCheckoutService(repo, coupons, provider, publisher, zerolog.Nop())

	userID := uuid.New()
	product := testProduct("Basmati Rice 5kg", "100", "10", 5)
	repo.SeedProduct(product)

	line, err := repo.InsertCartLine(context.Background(), userID, &product, 1)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateCartLineQuantity(context.Background(), userID, line.ID, 2))

	address := domain.Address{
		ID:          uuid.New(),
		UserID:      userID,
		AddressLine: "12 Market Street",
		City:        "Pune",
		State:       "MH",
		Country:     "India",
		Pincode:     "411001",
		Mobile:      "9999999999",
		Active:      true,
	}
	repo.SeedAddress(address)
	repo.SeedCoupon(activeCoupon("SAVE20", domain.DiscountPercentage, "20"))

	return &checkoutFixture{
		repo:      repo,
		provider:  provider,
		publisher: publisher,
		checkout:  checkout,
		userID:    userID,
		product:   product,
		addressID: address.ID,
	}
}

// Test_CheckoutSubmit_CODWithCoupon walks the full worked example: cart total
// 180, SAVE20 takes 36, order lands at 144 cash on delivery.
func Test_CheckoutSubmit_CODWithCoupon(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
		CouponCode:    "SAVE20",
	})

	require.NoError(t, err)
	order := result.Order
	assert.True(t, order.SubTotalAmt.Equal(d("180")), "item-discounted cart total")
	assert.True(t, order.TotalAmt.Equal(d("144")), "180 - 36 coupon discount")
	assert.Equal(t, "SAVE20", order.AppliedCouponCode)
	assert.Equal(t, domain.PaymentCashOnDelivery, order.PaymentStatus)
	assert.Equal(t, domain.DeliveryPlaced, order.DeliveryStatus)
	assert.Empty(t, result.RedirectURL, "COD never touches the payment provider")
	assert.Equal(t, 0, f.provider.Calls())

	require.Len(t, order.Items, 1)
	assert.Equal(t, f.product.ID, order.Items[0].ProductID)
	assert.Equal(t, int32(2), order.Items[0].Quantity)
	assert.True(t, order.Items[0].Price.Equal(d("100")), "snapshot keeps the base price")

	// Stock reserved, cart cleared, redemption consumed, event published.
	product, err := f.repo.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), product.Stock, "5 - 2 = 3")

	lines, err := f.repo.ListCartLines(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.Equal(t, 1, f.repo.Calls("IncrementRedemption"), "exactly one redemption per order")
	assert.Equal(t, 1, f.publisher.PlacedCount())
}

func Test_CheckoutSubmit_WithoutCoupon(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
	})

	require.NoError(t, err)
	assert.True(t, result.Order.TotalAmt.Equal(d("180")), "no coupon, total equals subtotal")
	assert.Empty(t, result.Order.AppliedCouponCode)
	assert.Equal(t, 0, f.repo.Calls("IncrementRedemption"))
}

func Test_CheckoutSubmit_Online(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodOnline,
		AddressID:     f.addressID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, result.Order.PaymentStatus,
		"online orders stay pending until the gateway confirms")
	assert.NotEmpty(t, result.RedirectURL)
	assert.Equal(t, 1, f.provider.Calls())
}

func Test_CheckoutSubmit_Preconditions(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		f := newCheckoutFixture(t)
		require.NoError(t, f.repo.ClearCart(context.Background(), f.userID))

		_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
			UserID:        f.userID,
			PaymentMethod: domain.PaymentMethodCOD,
			AddressID:     f.addressID,
		})
		assert.ErrorIs(t, err, domain.ErrCartEmpty)
	})

	t.Run("no address selected", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
			UserID:        f.userID,
			PaymentMethod: domain.PaymentMethodCOD,
			AddressID:     uuid.Nil,
		})
		assert.ErrorIs(t, err, domain.ErrNoAddressSelected)
	})

	t.Run("address belonging to nobody", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
			UserID:        f.userID,
			PaymentMethod: domain.PaymentMethodCOD,
			AddressID:     uuid.New(),
		})
		assert.ErrorIs(t, err, domain.ErrNoAddressSelected)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
			UserID:        f.userID,
			PaymentMethod: domain.PaymentMethod("WIRE"),
			AddressID:     f.addressID,
		})
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}

// Test_CheckoutSubmit_StaleResumedCoupon rejects a coupon result restored
// from an earlier session once the cart has moved on.
func Test_CheckoutSubmit_StaleResumedCoupon(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
		Resumed: &domain.AppliedCouponResult{
			Coupon:      domain.Coupon{Code: "SAVE20"},
			FinalAmount: d("90"), // computed against an older, smaller cart
			CartVersion: 7,
		},
	})

	assert.ErrorIs(t, err, domain.ErrCouponStale)

	lines, lerr := f.repo.ListCartLines(context.Background(), f.userID)
	require.NoError(t, lerr)
	assert.Len(t, lines, 1, "rejected submission leaves the cart intact")
}

func Test_CheckoutSubmit_ResumedCouponStillValid(t *testing.T) {
	f := newCheckoutFixture(t)

	result, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
		Resumed: &domain.AppliedCouponResult{
			Coupon:      domain.Coupon{Code: "SAVE20"},
			FinalAmount: d("144"),
			CartVersion: 0,
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Order.TotalAmt.Equal(d("144")), "matching resumed result is honored")
}

// Test_CheckoutSubmit_ConcurrentSubmitsShareOneOrder overlaps two submits for
// the same user: the second must join the first's flight and receive the same
// order instead of placing a duplicate.
func Test_CheckoutSubmit_ConcurrentSubmitsShareOneOrder(t *testing.T) {
	f := newCheckoutFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var created atomic.Int32
	f.repo.CreateOrderFunc = func(ctx context.Context, order *domain.Order) error {
		created.Add(1)
		once.Do(func() {
			close(entered)
			<-release
		})
		f.repo.SeedOrder(*order)
		return nil
	}

	params := domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
	}

	type outcome struct {
		result *domain.SubmitResult
		err    error
	}
	outcomes := make(chan outcome, 2)
	submit := func() {
		r, err := f.checkout.Submit(context.Background(), params)
		outcomes <- outcome{r, err}
	}

	go submit()
	<-entered
	go submit()
	// The second submit must be waiting on the flight before the first is
	// allowed to finish.
	time.Sleep(100 * time.Millisecond)
	close(release)

	first, second := <-outcomes, <-outcomes
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, first.result.Order.ID, second.result.Order.ID,
		"both callers receive the same order")
	assert.Equal(t, int32(1), created.Load(), "exactly one order is created")
}

func Test_CheckoutSubmit_StockShortfall(t *testing.T) {
	f := newCheckoutFixture(t)
	// Another shopper bought most of the stock after this cart was built.
	require.NoError(t, f.repo.DecrementStock(context.Background(), f.product.ID, 4))

	_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
	})

	assert.ErrorIs(t, err, domain.ErrExceedsStock)

	product, gerr := f.repo.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, gerr)
	assert.Equal(t, int32(1), product.Stock, "failed checkout releases nothing it did not take")

	lines, lerr := f.repo.ListCartLines(context.Background(), f.userID)
	require.NoError(t, lerr)
	assert.Len(t, lines, 1, "cart survives the rejection")
}

func Test_CheckoutSubmit_PaymentFailureReleasesStock(t *testing.T) {
	f := newCheckoutFixture(t)
	f.provider.InitiateCheckoutFunc = func(ctx context.Context, order *domain.Order) (*payment.Session, error) {
		return nil, errors.New("gateway timeout")
	}

	_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodOnline,
		AddressID:     f.addressID,
	})

	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))

	product, gerr := f.repo.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, gerr)
	assert.Equal(t, int32(5), product.Stock, "reserved stock is returned")

	orders, lerr := f.repo.ListOrders(context.Background(), domain.OrderFilter{UserID: &f.userID})
	require.NoError(t, lerr)
	assert.Empty(t, orders, "no order is created when the gateway fails")

	lines, lerr := f.repo.ListCartLines(context.Background(), f.userID)
	require.NoError(t, lerr)
	assert.Len(t, lines, 1)
}

func Test_CheckoutSubmit_PersistFailureReleasesStock(t *testing.T) {
	f := newCheckoutFixture(t)
	f.repo.CreateOrderFunc = func(ctx context.Context, order *domain.Order) error {
		return errors.New("connection reset")
	}

	_, err := f.checkout.Submit(context.Background(), domain.SubmitParams{
		UserID:        f.userID,
		PaymentMethod: domain.PaymentMethodCOD,
		AddressID:     f.addressID,
	})

	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

	product, gerr := f.repo.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, gerr)
	assert.Equal(t, int32(5), product.Stock)
	assert.Equal(t, 0, f.repo.Calls("IncrementRedemption"))
	assert.Equal(t, 0, f.publisher.PlacedCount())
}
