package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/repository"
	"github.com/verdantmarket/verdant/internal/service"
)

func testProduct(name, price, discount string, stock int32) domain.Product {
	return domain.Product{
		ID:              uuid.New(),
		Name:            name,
		Price:           d(price),
		DiscountPercent: d(discount),
		Stock:           stock,
	}
}

func Test_CartAdd_CreatesLineWithQuantityOne(t *testing.T) {
	product := testProduct("Basmati Rice 5kg", "100", "10", 5)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	summary, err := cart.Add(context.Background(), userID, product.ID)

	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, int32(1), summary.Items[0].Quantity)
	assert.True(t, summary.Items[0].Price.Equal(d("100")), "price snapshot taken at add time")
	assert.Equal(t, int64(1), summary.Version, "mutation bumps the cart version")
}

// Test_CartAdd_ExistingLineIsNoOp verifies the one-line-per-product invariant:
// re-adding a product neither duplicates the line nor changes its quantity.
func Test_CartAdd_ExistingLineIsNoOp(t *testing.T) {
	product := testProduct("Milk 1L", "30", "0", 10)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	first, err := cart.Add(context.Background(), userID, product.ID)
	require.NoError(t, err)

	second, err := cart.Add(context.Background(), userID, product.ID)
	require.NoError(t, err)

	require.Len(t, second.Items, 1)
	assert.Equal(t, int32(1), second.Items[0].Quantity)
	assert.Equal(t, first.Version, second.Version, "a no-op add does not bump the version")
}

func Test_CartAdd_Failures(t *testing.T) {
	soldOut := testProduct("Ghee 1kg", "450", "0", 0)
	repo := repository.NewMock()
	repo.SeedProduct(soldOut)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	_, err := cart.Add(context.Background(), userID, soldOut.ID)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	_, err = cart.Add(context.Background(), userID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

// Test_CartAdd_DuplicateInFlightRejected holds one Add open at the repository
// and fires an identical Add for the same (user, product) underneath it.
func Test_CartAdd_DuplicateInFlightRejected(t *testing.T) {
	product := testProduct("Basmati Rice 5kg", "100", "10", 5)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo.GetProductFunc = func(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		cp := product
		return &cp, nil
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := cart.Add(context.Background(), userID, product.ID)
		firstDone <- err
	}()
	<-entered

	_, err := cart.Add(context.Background(), userID, product.ID)
	assert.ErrorIs(t, err, domain.ErrOperationInFlight,
		"an identical mutation is rejected while the first is still running")

	close(release)
	require.NoError(t, <-firstDone)

	lines, err := repo.ListCartLines(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, lines, 1, "only the first add reaches the cart")
}

func Test_CartSetQuantity(t *testing.T) {
	product := testProduct("Atta 10kg", "400", "5", 3)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	summary, err := cart.Add(context.Background(), userID, product.ID)
	require.NoError(t, err)
	lineID := summary.Items[0].ID

	t.Run("within stock", func(t *testing.T) {
		got, err := cart.SetQuantity(context.Background(), userID, lineID, 3)
		require.NoError(t, err)
		assert.Equal(t, int32(3), got.Items[0].Quantity)
	})

	t.Run("beyond stock snapshot", func(t *testing.T) {
		_, err := cart.SetQuantity(context.Background(), userID, lineID, 4)
		assert.ErrorIs(t, err, domain.ErrExceedsStock, "quantity ceiling is the stock snapshot")
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := cart.SetQuantity(context.Background(), userID, lineID, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		got, err := cart.SetQuantity(context.Background(), userID, lineID, 0)
		require.NoError(t, err)
		assert.Empty(t, got.Items, "quantity 0 deletes rather than retains the line")
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err := cart.SetQuantity(context.Background(), userID, uuid.New(), 1)
		assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
	})
}

func Test_CartRemove(t *testing.T) {
	product := testProduct("Eggs 12pk", "90", "0", 20)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	summary, err := cart.Add(context.Background(), userID, product.ID)
	require.NoError(t, err)

	got, err := cart.Remove(context.Background(), userID, summary.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Greater(t, got.Version, summary.Version, "removal bumps the version")

	_, err = cart.Remove(context.Background(), userID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
}

func Test_CartSummary_ComputesTotals(t *testing.T) {
	product := testProduct("Basmati Rice 5kg", "100", "10", 5)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	summary, err := cart.Add(context.Background(), userID, product.ID)
	require.NoError(t, err)
	summary, err = cart.SetQuantity(context.Background(), userID, summary.Items[0].ID, 2)
	require.NoError(t, err)

	assert.True(t, summary.Subtotal.Equal(d("200")), "2 * 100")
	assert.True(t, summary.Total.Equal(d("180")), "2 * 90")
	assert.True(t, summary.Savings.Equal(d("20")))
	assert.Equal(t, 1, summary.ItemCount)
}

func Test_CartClear(t *testing.T) {
	product := testProduct("Bread", "40", "0", 8)
	repo := repository.NewMock()
	repo.SeedProduct(product)
	cart := service.NewCartService(repo, zerolog.Nop())
	userID := uuid.New()

	_, err := cart.Add(context.Background(), userID, product.ID)
	require.NoError(t, err)

	require.NoError(t, cart.Clear(context.Background(), userID))

	summary, err := cart.Summary(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.Equal(t, int64(2), summary.Version, "clear counts as a mutation")
}
