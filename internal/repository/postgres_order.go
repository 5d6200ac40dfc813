package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/verdantmarket/verdant/internal/domain"
)

const orderColumns = `id, user_id, address_line, city, state, country, pincode, mobile,
	sub_total_amt, total_amt, applied_coupon_code, payment_status, delivery_status,
	rider_id, estimated_minutes, created_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	var (
		o       domain.Order
		riderID uuid.NullUUID
		minutes pgtype.Int4
	)
	err := row.Scan(
		&o.ID, &o.UserID,
		&o.Address.AddressLine, &o.Address.City, &o.Address.State,
		&o.Address.Country, &o.Address.Pincode, &o.Address.Mobile,
		&o.SubTotalAmt, &o.TotalAmt, &o.AppliedCouponCode,
		&o.PaymentStatus, &o.DeliveryStatus,
		&riderID, &minutes, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if riderID.Valid {
		id := riderID.UUID
		o.RiderID = &id
	}
	if minutes.Valid {
		m := minutes.Int32
		o.EstimatedMinutes = &m
	}
	return &o, nil
}

// CreateOrder persists the order and its item snapshots atomically.
func (p *Postgres) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
		INSERT INTO orders (id, user_id, address_line, city, state, country, pincode, mobile,
			sub_total_amt, total_amt, applied_coupon_code, payment_status, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = tx.Exec(ctx, insertOrder,
		order.ID, order.UserID,
		order.Address.AddressLine, order.Address.City, order.Address.State,
		order.Address.Country, order.Address.Pincode, order.Address.Mobile,
		order.SubTotalAmt, order.TotalAmt, order.AppliedCouponCode,
		order.PaymentStatus, order.DeliveryStatus, order.CreatedAt,
	)
	if err != nil {
		return mapErr(err)
	}

	const insertItem = `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, discount_percent)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, it := range order.Items {
		if _, err := tx.Exec(ctx, insertItem,
			order.ID, it.ProductID, it.ProductName, it.Quantity, it.Price, it.DiscountPercent,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetOrder retrieves a single order with its item snapshots.
func (p *Postgres) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	o, err := scanOrder(p.pool.QueryRow(ctx, q, orderID))
	if err != nil {
		return nil, mapErr(err)
	}

	items, err := p.listOrderItems(ctx, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	o.Items = items[orderID]
	return o, nil
}

// ListOrders returns orders matching the filter, newest first.
func (p *Postgres) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE true`, orderColumns)
	var args []any

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.RiderID != nil {
		args = append(args, *filter.RiderID)
		q += fmt.Sprintf(" AND rider_id = $%d", len(args))
	}
	if filter.Unassigned {
		q += " AND rider_id IS NULL AND delivery_status <> 'Delivered'"
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		q += fmt.Sprintf(" AND delivery_status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []uuid.UUID
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := p.listOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (p *Postgres) listOrderItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	const q = `
		SELECT order_id, product_id, product_name, quantity, price, discount_percent
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`

	rows, err := p.pool.Query(ctx, q, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem)
	for rows.Next() {
		var (
			orderID uuid.UUID
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.DiscountPercent); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}

// TransitionDeliveryStatus moves an order from exactly `from` to `to`.
func (p *Postgres) TransitionDeliveryStatus(ctx context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus) error {
	const q = `
		UPDATE orders
		SET delivery_status = $3
		WHERE id = $1 AND delivery_status = $2`

	tag, err := p.pool.Exec(ctx, q, orderID, from, to)
	if err != nil {
		return fmt.Errorf("transition delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// MarkDelivered completes any non-terminal order.
func (p *Postgres) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	const q = `
		UPDATE orders
		SET delivery_status = $2
		WHERE id = $1 AND delivery_status <> $2`

	tag, err := p.pool.Exec(ctx, q, orderID, domain.DeliveryDelivered)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// AssignRider claims an unassigned order. The rider_id IS NULL condition makes
// concurrent claims resolve to exactly one winner at the database.
func (p *Postgres) AssignRider(ctx context.Context, orderID, riderID uuid.UUID) error {
	const q = `
		UPDATE orders
		SET rider_id = $2
		WHERE id = $1 AND rider_id IS NULL`

	tag, err := p.pool.Exec(ctx, q, orderID, riderID)
	if err != nil {
		return fmt.Errorf("assign rider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// SetEstimatedTime records the delivery estimate, conditional on riderID
// being the assigned rider.
func (p *Postgres) SetEstimatedTime(ctx context.Context, orderID, riderID uuid.UUID, minutes int32) error {
	const q = `
		UPDATE orders
		SET estimated_minutes = $3
		WHERE id = $1 AND rider_id = $2`

	tag, err := p.pool.Exec(ctx, q, orderID, riderID, minutes)
	if err != nil {
		return fmt.Errorf("set estimated time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// MarkPaid confirms an online payment. The update is conditional on the
// order still awaiting payment, so repeated confirmations match no rows.
func (p *Postgres) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	const q = `
		UPDATE orders
		SET payment_status = $2
		WHERE id = $1 AND payment_status = $3`

	tag, err := p.pool.Exec(ctx, q, orderID, domain.PaymentPaid, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
