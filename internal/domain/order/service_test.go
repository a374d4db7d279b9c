package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordax/salesdesk/internal/domain/customer"
	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/product"
)

// --- Mock implementations ---

// memStore is an in-memory Store. WithinTx snapshots all state before running
// fn and restores the snapshot when fn fails, mirroring a rollback.
type memStore struct {
	customers map[int64]bool
	products  map[int64]*product.Product
	orders    map[int64]*Order
	items     map[int64][]OrderItem
	logs      []inventory.LogEntry
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[int64]bool),
		products:  make(map[int64]*product.Product),
		orders:    make(map[int64]*Order),
		items:     make(map[int64][]OrderItem),
	}
}

func (s *memStore) Customers() customer.Repository { return customerRepo{s} }
func (s *memStore) Products() product.Repository   { return productRepo{s} }
func (s *memStore) Orders() Repository             { return orderRepo{s} }
func (s *memStore) Ledger() inventory.Ledger       { return ledger{s} }

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	snap := s.snapshot()
	if err := fn(ctx, txView{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) snapshot() *memStore {
	snap := newMemStore()
	snap.nextID = s.nextID
	for id, ok := range s.customers {
		snap.customers[id] = ok
	}
	for id, p := range s.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, o := range s.orders {
		co := *o
		snap.orders[id] = &co
	}
	for id, items := range s.items {
		snap.items[id] = append([]OrderItem(nil), items...)
	}
	snap.logs = append([]inventory.LogEntry(nil), s.logs...)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.customers = snap.customers
	s.products = snap.products
	s.orders = snap.orders
	s.items = snap.items
	s.logs = snap.logs
	s.nextID = snap.nextID
}

// txView adapts memStore to the Tx interface so WithinTx hands out the same
// state it snapshots.
type txView struct{ s *memStore }

func (t txView) Customers() customer.Repository { return customerRepo{t.s} }
func (t txView) Products() product.Repository   { return productRepo{t.s} }
func (t txView) Orders() Repository             { return orderRepo{t.s} }
func (t txView) Ledger() inventory.Ledger       { return ledger{t.s} }

type customerRepo struct{ s *memStore }

func (r customerRepo) Exists(_ context.Context, id int64) (bool, error) {
	return r.s.customers[id], nil
}

type productRepo struct{ s *memStore }

func (r productRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r productRepo) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.s.products {
		out = append(out, *p)
	}
	return out, nil
}

type orderRepo struct{ s *memStore }

func (r orderRepo) Insert(_ context.Context, o *Order) (int64, error) {
	r.s.nextID++
	co := *o
	co.ID = r.s.nextID
	r.s.orders[co.ID] = &co
	return co.ID, nil
}

func (r orderRepo) InsertItems(_ context.Context, orderID int64, items []OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
	}
	r.s.items[orderID] = append([]OrderItem(nil), items...)
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	co := *o
	return &co, nil
}

func (r orderRepo) GetByIDForUpdate(ctx context.Context, id int64) (*Order, error) {
	return r.GetByID(ctx, id)
}

func (r orderRepo) ItemsByOrderID(_ context.Context, orderID int64) ([]OrderItem, error) {
	return append([]OrderItem(nil), r.s.items[orderID]...), nil
}

func (r orderRepo) ListByCustomer(_ context.Context, customerID int64) ([]Order, error) {
	var out []Order
	for _, o := range r.s.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r orderRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	o, ok := r.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (r orderRepo) UpdatePaymentStatus(_ context.Context, id int64, status PaymentStatus) error {
	o, ok := r.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (r orderRepo) CountByStatus(_ context.Context, status Status) (int64, error) {
	var n int64
	for _, o := range r.s.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

type ledger struct{ s *memStore }

func (l ledger) Reserve(_ context.Context, productID int64, quantity int, actor string) (int, error) {
	p, ok := l.s.products[productID]
	if !ok {
		return 0, product.ErrNotFound
	}
	if quantity > p.Stock {
		return 0, &inventory.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.Stock}
	}
	return l.write(p, -quantity, inventory.ReasonSale, actor), nil
}

func (l ledger) Restock(_ context.Context, productID int64, quantity int, reason inventory.ChangeReason, actor string) (int, error) {
	p, ok := l.s.products[productID]
	if !ok {
		return 0, product.ErrNotFound
	}
	return l.write(p, quantity, reason, actor), nil
}

func (l ledger) Adjust(_ context.Context, productID int64, change int, actor string) (int, error) {
	p, ok := l.s.products[productID]
	if !ok {
		return 0, product.ErrNotFound
	}
	if p.Stock+change < 0 {
		return 0, &inventory.InsufficientStockError{ProductID: productID, Requested: -change, Available: p.Stock}
	}
	return l.write(p, change, inventory.ReasonManualAdjustment, actor), nil
}

func (l ledger) write(p *product.Product, change int, reason inventory.ChangeReason, actor string) int {
	prev := p.Stock
	p.Stock += change
	l.s.logs = append(l.s.logs, inventory.LogEntry{
		ProductID: p.ID,
		Previous:  prev,
		Current:   p.Stock,
		Change:    change,
		Reason:    reason,
		ChangedBy: actor,
	})
	return p.Stock
}

func (l ledger) CurrentStock(_ context.Context, productID int64) (int, error) {
	p, ok := l.s.products[productID]
	if !ok {
		return 0, product.ErrNotFound
	}
	return p.Stock, nil
}

func (l ledger) Entries(_ context.Context, productID int64) ([]inventory.LogEntry, error) {
	var out []inventory.LogEntry
	for _, e := range l.s.logs {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestStore() *memStore {
	s := newMemStore()
	s.customers[1] = true
	s.products[10] = &product.Product{ID: 10, Name: "Widget", Price: decimal.RequireFromString("10.00"), Stock: 5}
	s.products[20] = &product.Product{ID: 20, Name: "Gadget", Price: decimal.RequireFromString("25.50"), Stock: 2}
	return s
}

func createOrder(t *testing.T, svc *Service, s *memStore) int64 {
	t.Helper()

	id, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID: 1,
		Items: []ItemRequest{
			{ProductID: 10, Quantity: 2},
			{ProductID: 20, Quantity: 1},
		},
	})
	require.NoError(t, err)
	return id
}

// --- Tests ---

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc := NewService(newTestStore(), "test")

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{CustomerID: 1})
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	svc := NewService(newTestStore(), "test")

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID: 1,
		Items:      []ItemRequest{{ProductID: 10, Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, int64(10), iqErr.ProductID)
}

func TestCreateOrder_CustomerNotFound(t *testing.T) {
	svc := NewService(newTestStore(), "test")

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID: 999,
		Items:      []ItemRequest{{ProductID: 10, Quantity: 1}},
	})

	var cnfErr *CustomerNotFoundError
	require.ErrorAs(t, err, &cnfErr)
	assert.Equal(t, int64(999), cnfErr.CustomerID)
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	svc := NewService(newTestStore(), "test")

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID: 1,
		Items:      []ItemRequest{{ProductID: 404, Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, int64(404), pnfErr.ProductID)
}

func TestCreateOrder_ComputesTotals(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")

	id := createOrder(t, svc, s)

	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("45.50")), "total %s", o.Total)

	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, o.Items[0].Subtotal.Equal(decimal.RequireFromString("20.00")))

	// Stock decremented and one sale entry per line item.
	assert.Equal(t, 3, s.products[10].Stock)
	assert.Equal(t, 1, s.products[20].Stock)
	require.Len(t, s.logs, 2)
	assert.Equal(t, inventory.ReasonSale, s.logs[0].Reason)
	assert.Equal(t, "test", s.logs[0].ChangedBy)
}

func TestCreateOrder_InsufficientStockRollsBack(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")

	// First item fits, second exceeds stock. Nothing may survive.
	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID: 1,
		Items: []ItemRequest{
			{ProductID: 10, Quantity: 2},
			{ProductID: 20, Quantity: 3},
		},
	})

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(20), stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	assert.Equal(t, 5, s.products[10].Stock, "first reservation must be rolled back")
	assert.Empty(t, s.orders)
	assert.Empty(t, s.logs)
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.CancelOrder(context.Background(), id))

	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	assert.Equal(t, 5, s.products[10].Stock)
	assert.Equal(t, 2, s.products[20].Stock)

	// Two sale entries plus two restock entries.
	require.Len(t, s.logs, 4)
	assert.Equal(t, inventory.ReasonCancellationRestock, s.logs[2].Reason)
	assert.Equal(t, inventory.ReasonCancellationRestock, s.logs[3].Reason)
}

func TestCancelOrder_TerminalState(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.Transition(context.Background(), id, StatusCompleted))

	err := svc.CancelOrder(context.Background(), id)

	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusCompleted, itErr.From)
	assert.Equal(t, StatusCancelled, itErr.To)
}

func TestCancelOrder_NotFound(t *testing.T) {
	svc := NewService(newTestStore(), "test")

	err := svc.CancelOrder(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransition_CompletedMarksPaid(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.Transition(context.Background(), id, StatusCompleted))

	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
}

func TestTransition_SameStatusIsNoOp(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.Transition(context.Background(), id, StatusPending))

	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
}

func TestTransition_CancelledRestoresStock(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.Transition(context.Background(), id, StatusShipping))
	require.NoError(t, svc.Transition(context.Background(), id, StatusCancelled))

	o, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, 5, s.products[10].Stock)
	assert.Equal(t, 2, s.products[20].Stock)
}

func TestTransition_IllegalFromTerminal(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.Transition(context.Background(), id, StatusCompleted))

	err := svc.Transition(context.Background(), id, StatusShipping)

	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusCompleted, itErr.From)
	assert.Equal(t, StatusShipping, itErr.To)
}

func TestTransition_UnknownStatus(t *testing.T) {
	svc := NewService(newTestStore(), "test")

	err := svc.Transition(context.Background(), 1, Status("teleported"))

	var itErr *IllegalTransitionError
	require.ErrorAs(t, err, &itErr)
}

func TestListCustomerOrders(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	createOrder(t, svc, s)

	orders, err := svc.ListCustomerOrders(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = svc.ListCustomerOrders(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestStatusCounts(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")

	first := createOrder(t, svc, s)
	second := createOrder(t, svc, s)
	require.NoError(t, svc.Transition(context.Background(), first, StatusCompleted))
	require.NoError(t, svc.CancelOrder(context.Background(), second))

	counts, err := svc.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[StatusPending])
	assert.Equal(t, int64(0), counts[StatusShipping])
	assert.Equal(t, int64(1), counts[StatusCompleted])
	assert.Equal(t, int64(1), counts[StatusCancelled])
}

func TestVerifyOrder_OK(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	require.NoError(t, svc.VerifyOrder(context.Background(), id))
}

func TestVerifyOrder_TotalMismatch(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	s.orders[id].Total = decimal.RequireFromString("1.00")

	err := svc.VerifyOrder(context.Background(), id)

	var invErr *InvariantViolationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, id, invErr.OrderID)
}

func TestVerifyOrder_SubtotalMismatch(t *testing.T) {
	s := newTestStore()
	svc := NewService(s, "test")
	id := createOrder(t, svc, s)

	s.items[id][0].Subtotal = decimal.RequireFromString("999.00")

	err := svc.VerifyOrder(context.Background(), id)

	var invErr *InvariantViolationError
	require.ErrorAs(t, err, &invErr)
}
