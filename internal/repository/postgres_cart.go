package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
)

const cartLineColumns = `id, product_id, product_name, price, discount_percent, quantity, stock`

// ListCartLines returns the user's cart lines, oldest first.
func (p *Postgres) ListCartLines(ctx context.Context, userID uuid.UUID) ([]domain.LineItem, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY created_at`, cartLineColumns)

	rows, err := p.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(
			&it.ID, &it.ProductID, &it.ProductName,
			&it.Price, &it.DiscountPercent, &it.Quantity, &it.Stock,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetCartLine retrieves one line scoped to the owning user.
func (p *Postgres) GetCartLine(ctx context.Context, userID, lineItemID uuid.UUID) (*domain.LineItem, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM cart_lines
		WHERE user_id = $1 AND id = $2`, cartLineColumns)

	var it domain.LineItem
	err := p.pool.QueryRow(ctx, q, userID, lineItemID).Scan(
		&it.ID, &it.ProductID, &it.ProductName,
		&it.Price, &it.DiscountPercent, &it.Quantity, &it.Stock,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

// GetCartLineByProduct retrieves the user's line for a product, if any.
func (p *Postgres) GetCartLineByProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.LineItem, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM cart_lines
		WHERE user_id = $1 AND product_id = $2`, cartLineColumns)

	var it domain.LineItem
	err := p.pool.QueryRow(ctx, q, userID, productID).Scan(
		&it.ID, &it.ProductID, &it.ProductName,
		&it.Price, &it.DiscountPercent, &it.Quantity, &it.Stock,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

// InsertCartLine creates a line with the product's current price, discount
// and stock snapshot. The unique index on (user_id, product_id) backs the
// one-line-per-product invariant; a second insert reports ErrDuplicate.
func (p *Postgres) InsertCartLine(ctx context.Context, userID uuid.UUID, product *domain.Product, quantity int32) (*domain.LineItem, error) {
	const q = `
		INSERT INTO cart_lines (user_id, product_id, product_name, price, discount_percent, quantity, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	it := domain.LineItem{
		ProductID:       product.ID,
		ProductName:     product.Name,
		Price:           product.Price,
		DiscountPercent: product.DiscountPercent,
		Quantity:        quantity,
		Stock:           product.Stock,
	}
	err := p.pool.QueryRow(ctx, q,
		userID, product.ID, product.Name, product.Price, product.DiscountPercent, quantity, product.Stock,
	).Scan(&it.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &it, nil
}

// UpdateCartLineQuantity updates a line's quantity in place.
func (p *Postgres) UpdateCartLineQuantity(ctx context.Context, userID, lineItemID uuid.UUID, quantity int32) error {
	const q = `
		UPDATE cart_lines
		SET quantity = $3
		WHERE user_id = $1 AND id = $2`

	tag, err := p.pool.Exec(ctx, q, userID, lineItemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart line quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCartLine removes a line scoped to the owning user.
func (p *Postgres) DeleteCartLine(ctx context.Context, userID, lineItemID uuid.UUID) error {
	const q = `DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`

	tag, err := p.pool.Exec(ctx, q, userID, lineItemID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCart removes every line from the user's cart.
func (p *Postgres) ClearCart(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM cart_lines WHERE user_id = $1`

	if _, err := p.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// GetCartVersion reports the cart's mutation counter, zero for a fresh cart.
func (p *Postgres) GetCartVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	const q = `SELECT version FROM cart_versions WHERE user_id = $1`

	var version int64
	err := p.pool.QueryRow(ctx, q, userID).Scan(&version)
	if err != nil {
		if mapErr(err) == ErrNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("get cart version: %w", err)
	}
	return version, nil
}

// BumpCartVersion increments the cart's mutation counter and returns the new
// value. Coupon results validated against an older version are stale.
func (p *Postgres) BumpCartVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	const q = `
		INSERT INTO cart_versions (user_id, version)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET version = cart_versions.version + 1
		RETURNING version`

	var version int64
	if err := p.pool.QueryRow(ctx, q, userID).Scan(&version); err != nil {
		return 0, fmt.Errorf("bump cart version: %w", err)
	}
	return version, nil
}
