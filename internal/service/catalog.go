package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/repository"
)

type catalogService struct {
	repo repository.Querier
}

// NewCatalogService exposes read-only product lookups.
func NewCatalogService(repo repository.Querier) domain.CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, "catalog.get_product", "failed to load product")
	}
	return product, nil
}

type addressService struct {
	repo repository.Querier
}

// NewAddressService exposes the user's selectable delivery addresses.
func NewAddressService(repo repository.Querier) domain.AddressService {
	return &addressService{repo: repo}
}

func (s *addressService) ListActiveAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	addresses, err := s.repo.ListActiveAddresses(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "address.list", "failed to list addresses")
	}
	return addresses, nil
}
