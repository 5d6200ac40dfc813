package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/verdantmarket/verdant/internal/domain"
)

const couponColumns = `id, code, description, discount_type, discount_value,
	min_order_amt, max_discount_amt, usage_limit, valid_from, valid_until, active`

func scanCoupon(row interface{ Scan(dest ...any) error }) (*domain.Coupon, error) {
	var (
		c        domain.Coupon
		maxDisc  decimal.NullDecimal
		usageLim pgtype.Int4
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue,
		&c.MinOrderAmt, &maxDisc, &usageLim, &c.ValidFrom, &c.ValidUntil, &c.Active,
	)
	if err != nil {
		return nil, err
	}
	if maxDisc.Valid {
		c.MaxDiscountAmt = &maxDisc.Decimal
	}
	if usageLim.Valid {
		limit := usageLim.Int32
		c.UsageLimit = &limit
	}
	return &c, nil
}

// ListActiveCoupons returns every active coupon, newest window first.
func (p *Postgres) ListActiveCoupons(ctx context.Context) ([]domain.Coupon, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM coupons
		WHERE active
		ORDER BY valid_until DESC`, couponColumns)

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active coupons: %w", err)
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// GetCouponByCode matches an active coupon case-insensitively.
func (p *Postgres) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM coupons
		WHERE active AND lower(code) = lower($1)`, couponColumns)

	c, err := scanCoupon(p.pool.QueryRow(ctx, q, code))
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// GetRedemptionCount reports how many orders the user has placed with this
// coupon, zero if never.
func (p *Postgres) GetRedemptionCount(ctx context.Context, userID, couponID uuid.UUID) (int32, error) {
	const q = `
		SELECT count
		FROM coupon_redemptions
		WHERE user_id = $1 AND coupon_id = $2`

	var count int32
	err := p.pool.QueryRow(ctx, q, userID, couponID).Scan(&count)
	if err != nil {
		if mapErr(err) == ErrNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("get redemption count: %w", err)
	}
	return count, nil
}

// IncrementRedemption adds one redemption for (user, coupon). Counts are
// never decremented.
func (p *Postgres) IncrementRedemption(ctx context.Context, userID, couponID uuid.UUID) error {
	const q = `
		INSERT INTO coupon_redemptions (user_id, coupon_id, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, coupon_id) DO UPDATE SET count = coupon_redemptions.count + 1`

	if _, err := p.pool.Exec(ctx, q, userID, couponID); err != nil {
		return fmt.Errorf("increment redemption: %w", err)
	}
	return nil
}

// CreateCoupon inserts an administrative coupon definition.
func (p *Postgres) CreateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	const q = `
		INSERT INTO coupons (id, code, description, discount_type, discount_value,
			min_order_amt, max_discount_amt, usage_limit, valid_from, valid_until, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := p.pool.Exec(ctx, q,
		coupon.ID, coupon.Code, coupon.Description, coupon.DiscountType, coupon.DiscountValue,
		coupon.MinOrderAmt, maxDiscountArg(coupon), usageLimitArg(coupon),
		coupon.ValidFrom, coupon.ValidUntil, coupon.Active,
	)
	return mapErr(err)
}

// UpdateCoupon rewrites a coupon definition in place.
func (p *Postgres) UpdateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	const q = `
		UPDATE coupons
		SET code = $2, description = $3, discount_type = $4, discount_value = $5,
			min_order_amt = $6, max_discount_amt = $7, usage_limit = $8,
			valid_from = $9, valid_until = $10, active = $11
		WHERE id = $1`

	tag, err := p.pool.Exec(ctx, q,
		coupon.ID, coupon.Code, coupon.Description, coupon.DiscountType, coupon.DiscountValue,
		coupon.MinOrderAmt, maxDiscountArg(coupon), usageLimitArg(coupon),
		coupon.ValidFrom, coupon.ValidUntil, coupon.Active,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCoupon removes a coupon definition. Redemption history is retained.
func (p *Postgres) DeleteCoupon(ctx context.Context, couponID uuid.UUID) error {
	const q = `DELETE FROM coupons WHERE id = $1`

	tag, err := p.pool.Exec(ctx, q, couponID)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func maxDiscountArg(c *domain.Coupon) decimal.NullDecimal {
	if c.MaxDiscountAmt == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *c.MaxDiscountAmt, Valid: true}
}

func usageLimitArg(c *domain.Coupon) pgtype.Int4 {
	if c.UsageLimit == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *c.UsageLimit, Valid: true}
}

// ListActiveAddresses returns the user's selectable delivery addresses.
func (p *Postgres) ListActiveAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	const q = `
		SELECT id, user_id, address_line, city, state, country, pincode, mobile, active
		FROM addresses
		WHERE user_id = $1 AND active
		ORDER BY created_at`

	rows, err := p.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list active addresses: %w", err)
	}
	defer rows.Close()

	var addrs []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.AddressLine, &a.City, &a.State,
			&a.Country, &a.Pincode, &a.Mobile, &a.Active,
		); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}
