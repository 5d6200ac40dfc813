package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Postgres implements Querier on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Compile-time check that Postgres implements Querier.
var _ Querier = (*Postgres)(nil)

// NewPostgres creates a Postgres-backed Querier.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// mapErr translates pgx-level errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// GetProduct retrieves the price, discount and stock snapshot for a product.
func (p *Postgres) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	const q = `
		SELECT id, name, price, discount_percent, stock
		FROM products
		WHERE id = $1`

	var prod domain.Product
	err := p.pool.QueryRow(ctx, q, productID).Scan(
		&prod.ID, &prod.Name, &prod.Price, &prod.DiscountPercent, &prod.Stock,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &prod, nil
}

// DecrementStock reduces stock atomically; the WHERE clause guards against
// oversell under concurrent orders.
func (p *Postgres) DecrementStock(ctx context.Context, productID uuid.UUID, qty int32) error {
	const q = `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	tag, err := p.pool.Exec(ctx, q, productID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// RestoreStock returns units reserved by a decrement whose checkout failed.
func (p *Postgres) RestoreStock(ctx context.Context, productID uuid.UUID, qty int32) error {
	const q = `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1`

	if _, err := p.pool.Exec(ctx, q, productID, qty); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}
