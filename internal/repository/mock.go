package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/verdantmarket/verdant/internal/domain"
)

type redemptionKey struct {
	userID   uuid.UUID
	couponID uuid.UUID
}

// Mock is an in-memory Querier for tests. It reproduces the conditional
// update semantics of the Postgres implementation (exclusive rider
// assignment, guarded stock decrement, single-winner status transitions) so
// service tests exercise the same race outcomes. CallLog records method
// invocations; the Func fields, when set, take over the corresponding method
// for error injection.
type Mock struct {
	mu sync.Mutex

	products     map[uuid.UUID]*domain.Product
	cartLines    map[uuid.UUID][]*domain.LineItem
	cartVersions map[uuid.UUID]int64
	coupons      map[uuid.UUID]*domain.Coupon
	redemptions  map[redemptionKey]int32
	addresses    map[uuid.UUID][]domain.Address
	orders       map[uuid.UUID]*domain.Order

	CallLog []string

	CreateOrderFunc         func(ctx context.Context, order *domain.Order) error
	IncrementRedemptionFunc func(ctx context.Context, userID, couponID uuid.UUID) error
	ClearCartFunc           func(ctx context.Context, userID uuid.UUID) error
	DecrementStockFunc      func(ctx context.Context, productID uuid.UUID, qty int32) error
	GetProductFunc          func(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
}

var _ Querier = (*Mock)(nil)

// NewMock creates an empty in-memory Querier.
func NewMock() *Mock {
	return &Mock{
		products:     make(map[uuid.UUID]*domain.Product),
		cartLines:    make(map[uuid.UUID][]*domain.LineItem),
		cartVersions: make(map[uuid.UUID]int64),
		coupons:      make(map[uuid.UUID]*domain.Coupon),
		redemptions:  make(map[redemptionKey]int32),
		addresses:    make(map[uuid.UUID][]domain.Address),
		orders:       make(map[uuid.UUID]*domain.Order),
	}
}

func (m *Mock) record(call string) {
	m.CallLog = append(m.CallLog, call)
}

// Calls counts CallLog entries for a method name.
func (m *Mock) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.CallLog {
		if c == method {
			n++
		}
	}
	return n
}

// SeedProduct registers a product in the catalog.
func (m *Mock) SeedProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

// SeedCoupon registers a coupon definition.
func (m *Mock) SeedCoupon(c domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := c
	m.coupons[c.ID] = &cp
}

// SeedAddress registers a delivery address for its user.
func (m *Mock) SeedAddress(a domain.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[a.UserID] = append(m.addresses[a.UserID], a)
}

// SeedOrder registers an existing order.
func (m *Mock) SeedOrder(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := o
	m.orders[o.ID] = &cp
}

// SetRedemptions fixes the redemption count for (user, coupon).
func (m *Mock) SetRedemptions(userID, couponID uuid.UUID, count int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redemptions[redemptionKey{userID, couponID}] = count
}

func (m *Mock) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, productID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetProduct")
	p, ok := m.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Mock) DecrementStock(ctx context.Context, productID uuid.UUID, qty int32) error {
	if m.DecrementStockFunc != nil {
		return m.DecrementStockFunc(ctx, productID, qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DecrementStock")
	p, ok := m.products[productID]
	if !ok || p.Stock < qty {
		return ErrNoRowsAffected
	}
	p.Stock -= qty
	return nil
}

func (m *Mock) RestoreStock(ctx context.Context, productID uuid.UUID, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RestoreStock")
	if p, ok := m.products[productID]; ok {
		p.Stock += qty
	}
	return nil
}

func (m *Mock) ListCartLines(ctx context.Context, userID uuid.UUID) ([]domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListCartLines")
	lines := m.cartLines[userID]
	out := make([]domain.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, *l)
	}
	return out, nil
}

func (m *Mock) GetCartLine(ctx context.Context, userID, lineItemID uuid.UUID) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetCartLine")
	for _, l := range m.cartLines[userID] {
		if l.ID == lineItemID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Mock) GetCartLineByProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetCartLineByProduct")
	for _, l := range m.cartLines[userID] {
		if l.ProductID == productID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Mock) InsertCartLine(ctx context.Context, userID uuid.UUID, product *domain.Product, quantity int32) (*domain.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("InsertCartLine")
	for _, l := range m.cartLines[userID] {
		if l.ProductID == product.ID {
			return nil, ErrDuplicate
		}
	}
	line := &domain.LineItem{
		ID:              uuid.New(),
		ProductID:       product.ID,
		ProductName:     product.Name,
		Price:           product.Price,
		DiscountPercent: product.DiscountPercent,
		Quantity:        quantity,
		Stock:           product.Stock,
	}
	m.cartLines[userID] = append(m.cartLines[userID], line)
	cp := *line
	return &cp, nil
}

func (m *Mock) UpdateCartLineQuantity(ctx context.Context, userID, lineItemID uuid.UUID, quantity int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateCartLineQuantity")
	for _, l := range m.cartLines[userID] {
		if l.ID == lineItemID {
			l.Quantity = quantity
			return nil
		}
	}
	return ErrNotFound
}

func (m *Mock) DeleteCartLine(ctx context.Context, userID, lineItemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteCartLine")
	lines := m.cartLines[userID]
	for i, l := range lines {
		if l.ID == lineItemID {
			m.cartLines[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Mock) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ClearCart")
	delete(m.cartLines, userID)
	return nil
}

func (m *Mock) GetCartVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetCartVersion")
	return m.cartVersions[userID], nil
}

func (m *Mock) BumpCartVersion(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("BumpCartVersion")
	m.cartVersions[userID]++
	return m.cartVersions[userID], nil
}

func (m *Mock) ListActiveCoupons(ctx context.Context) ([]domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListActiveCoupons")
	var out []domain.Coupon
	for _, c := range m.coupons {
		if c.Active {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *Mock) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetCouponByCode")
	for _, c := range m.coupons {
		if c.Active && strings.EqualFold(c.Code, code) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Mock) GetRedemptionCount(ctx context.Context, userID, couponID uuid.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetRedemptionCount")
	return m.redemptions[redemptionKey{userID, couponID}], nil
}

func (m *Mock) IncrementRedemption(ctx context.Context, userID, couponID uuid.UUID) error {
	if m.IncrementRedemptionFunc != nil {
		return m.IncrementRedemptionFunc(ctx, userID, couponID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("IncrementRedemption")
	m.redemptions[redemptionKey{userID, couponID}]++
	return nil
}

func (m *Mock) CreateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateCoupon")
	for _, c := range m.coupons {
		if strings.EqualFold(c.Code, coupon.Code) {
			return ErrDuplicate
		}
	}
	cp := *coupon
	m.coupons[coupon.ID] = &cp
	return nil
}

func (m *Mock) UpdateCoupon(ctx context.Context, coupon *domain.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateCoupon")
	if _, ok := m.coupons[coupon.ID]; !ok {
		return ErrNotFound
	}
	cp := *coupon
	m.coupons[coupon.ID] = &cp
	return nil
}

func (m *Mock) DeleteCoupon(ctx context.Context, couponID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteCoupon")
	if _, ok := m.coupons[couponID]; !ok {
		return ErrNotFound
	}
	delete(m.coupons, couponID)
	return nil
}

func (m *Mock) ListActiveAddresses(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListActiveAddresses")
	var out []domain.Address
	for _, a := range m.addresses[userID] {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Mock) CreateOrder(ctx context.Context, order *domain.Order) error {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateOrder")
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *Mock) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetOrder")
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *Mock) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListOrders")
	var out []domain.Order
	for _, o := range m.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.RiderID != nil && (o.RiderID == nil || *o.RiderID != *filter.RiderID) {
			continue
		}
		if filter.Unassigned && (o.RiderID != nil || o.DeliveryStatus == domain.DeliveryDelivered) {
			continue
		}
		if filter.Status != nil && o.DeliveryStatus != *filter.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Mock) TransitionDeliveryStatus(ctx context.Context, orderID uuid.UUID, from, to domain.DeliveryStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("TransitionDeliveryStatus")
	o, ok := m.orders[orderID]
	if !ok || o.DeliveryStatus != from {
		return ErrNoRowsAffected
	}
	o.DeliveryStatus = to
	return nil
}

func (m *Mock) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("MarkDelivered")
	o, ok := m.orders[orderID]
	if !ok || o.DeliveryStatus == domain.DeliveryDelivered {
		return ErrNoRowsAffected
	}
	o.DeliveryStatus = domain.DeliveryDelivered
	return nil
}

func (m *Mock) AssignRider(ctx context.Context, orderID, riderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AssignRider")
	o, ok := m.orders[orderID]
	if !ok || o.RiderID != nil {
		return ErrNoRowsAffected
	}
	id := riderID
	o.RiderID = &id
	return nil
}

func (m *Mock) SetEstimatedTime(ctx context.Context, orderID, riderID uuid.UUID, minutes int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetEstimatedTime")
	o, ok := m.orders[orderID]
	if !ok || o.RiderID == nil || *o.RiderID != riderID {
		return ErrNoRowsAffected
	}
	o.EstimatedMinutes = &minutes
	return nil
}

func (m *Mock) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("MarkPaid")
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus != domain.PaymentPending {
		return ErrNoRowsAffected
	}
	o.PaymentStatus = domain.PaymentPaid
	return nil
}
