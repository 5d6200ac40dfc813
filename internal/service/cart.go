// Package service implements the domain service interfaces on top of the
// repository, payment and events collaborators.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/pricing"
	"github.com/verdantmarket/verdant/internal/repository"
)

type cartService struct {
	repo   repository.Querier
	logger zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCartService creates the authoritative cart mirror.
func NewCartService(repo repository.Querier, logger zerolog.Logger) domain.CartService {
	return &cartService{
		repo:     repo,
		logger:   logger.With().Str("service", "cart").Logger(),
		inflight: make(map[string]struct{}),
	}
}

// begin registers an in-flight mutation for (user, op, target). A second
// identical mutation arriving before the first completes is rejected so
// rapid double-clicks cannot interleave.
func (s *cartService) begin(userID uuid.UUID, op string, target uuid.UUID) (func(), error) {
	key := userID.String() + "/" + op + "/" + target.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, domain.ErrOperationInFlight
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, nil
}

func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID) (*domain.CartSummary, error) {
	const op = "cart.add"

	done, err := s.begin(userID, op, productID)
	if err != nil {
		return nil, err
	}
	defer done()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}
	if product.Stock <= 0 {
		return nil, domain.ErrOutOfStock
	}

	_, err = s.repo.GetCartLineByProduct(ctx, userID, productID)
	switch {
	case err == nil:
		// Line already exists; adding the same product again is a no-op.
		return s.Summary(ctx, userID)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, domain.Internal(err, op, "failed to check cart")
	}

	if _, err := s.repo.InsertCartLine(ctx, userID, product, 1); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.Summary(ctx, userID)
		}
		return nil, domain.Internal(err, op, "failed to add cart line")
	}
	if _, err := s.repo.BumpCartVersion(ctx, userID); err != nil {
		return nil, domain.Internal(err, op, "failed to bump cart version")
	}

	s.logger.Debug().
		Str("user_id", userID.String()).
		Str("product_id", productID.String()).
		Msg("cart line added")

	return s.Summary(ctx, userID)
}

func (s *cartService) SetQuantity(ctx context.Context, userID, lineItemID uuid.UUID, quantity int32) (*domain.CartSummary, error) {
	const op = "cart.set_quantity"

	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	done, err := s.begin(userID, op, lineItemID)
	if err != nil {
		return nil, err
	}
	defer done()

	if quantity == 0 {
		return s.remove(ctx, userID, lineItemID, op)
	}

	line, err := s.repo.GetCartLine(ctx, userID, lineItemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, domain.Internal(err, op, "failed to load cart line")
	}
	if quantity > line.Stock {
		return nil, domain.ErrExceedsStock
	}

	if err := s.repo.UpdateCartLineQuantity(ctx, userID, lineItemID, quantity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, domain.Internal(err, op, "failed to update quantity")
	}
	if _, err := s.repo.BumpCartVersion(ctx, userID); err != nil {
		return nil, domain.Internal(err, op, "failed to bump cart version")
	}

	return s.Summary(ctx, userID)
}

func (s *cartService) Remove(ctx context.Context, userID, lineItemID uuid.UUID) (*domain.CartSummary, error) {
	const op = "cart.remove"

	done, err := s.begin(userID, op, lineItemID)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.remove(ctx, userID, lineItemID, op)
}

func (s *cartService) remove(ctx context.Context, userID, lineItemID uuid.UUID, op string) (*domain.CartSummary, error) {
	if err := s.repo.DeleteCartLine(ctx, userID, lineItemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, domain.Internal(err, op, "failed to delete cart line")
	}
	if _, err := s.repo.BumpCartVersion(ctx, userID); err != nil {
		return nil, domain.Internal(err, op, "failed to bump cart version")
	}
	return s.Summary(ctx, userID)
}

func (s *cartService) Summary(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error) {
	const op = "cart.summary"

	items, err := s.repo.ListCartLines(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list cart lines")
	}
	version, err := s.repo.GetCartVersion(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read cart version")
	}

	return &domain.CartSummary{
		UserID:    userID,
		Version:   version,
		Items:     items,
		Subtotal:  pricing.CartSubtotal(items),
		Total:     pricing.CartTotal(items),
		Savings:   pricing.TotalSavings(items),
		ItemCount: len(items),
	}, nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	const op = "cart.clear"

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return domain.Internal(err, op, "failed to clear cart")
	}
	if _, err := s.repo.BumpCartVersion(ctx, userID); err != nil {
		return domain.Internal(err, op, "failed to bump cart version")
	}
	return nil
}

func (s *cartService) Version(ctx context.Context, userID uuid.UUID) (int64, error) {
	version, err := s.repo.GetCartVersion(ctx, userID)
	if err != nil {
		return 0, domain.Internal(err, "cart.version", "failed to read cart version")
	}
	return version, nil
}
