package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/product"
)

// ItemRequest is one requested line item.
type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// CreateOrderRequest holds the input for creating an order. There is exactly
// one request shape; ambiguous inputs are rejected at the transport boundary.
type CreateOrderRequest struct {
	CustomerID int64
	Items      []ItemRequest
}

// Service implements the order workflow: atomic multi-item creation, the
// status state machine, and cancellation with stock restitution. It never
// commits directly; all mutations run through the store's transaction scope.
type Service struct {
	store Store
	actor string
}

// NewService creates an order Service. The actor is recorded on every
// inventory ledger entry the service produces.
func NewService(store Store, actor string) *Service {
	return &Service{store: store, actor: actor}
}

// CreateOrder atomically validates stock, computes totals, writes the order
// and its line items, and decrements stock. Any failure rolls back every
// reservation and insert performed in this call. Returns the new order ID.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (int64, error) {
	if len(req.Items) == 0 {
		return 0, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return 0, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	var orderID int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.Customers().Exists(ctx, req.CustomerID)
		if err != nil {
			return errors.Wrapf(err, "check customer %d", req.CustomerID)
		}
		if !ok {
			return &CustomerNotFoundError{CustomerID: req.CustomerID}
		}

		items := make([]OrderItem, len(req.Items))
		total := decimal.Zero
		for i, item := range req.Items {
			p, err := tx.Products().GetByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return &ProductNotFoundError{ProductID: item.ProductID}
				}
				return errors.Wrapf(err, "get product %d", item.ProductID)
			}

			// Reserve locks the product row, re-checks stock and appends the
			// audit entry. InsufficientStock aborts the whole transaction, so
			// no partial reservation survives.
			if _, err := tx.Ledger().Reserve(ctx, item.ProductID, item.Quantity, s.actor); err != nil {
				return err
			}

			subtotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			items[i] = OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: p.Price,
				Subtotal:  subtotal,
			}
			total = total.Add(subtotal)
		}

		o := &Order{
			CustomerID:    req.CustomerID,
			Total:         total,
			Status:        StatusPending,
			PaymentStatus: PaymentUnpaid,
		}
		id, err := tx.Orders().Insert(ctx, o)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		if err := tx.Orders().InsertItems(ctx, id, items); err != nil {
			return errors.Wrapf(err, "insert items for order %d", id)
		}

		orderID = id
		return nil
	})
	if err != nil {
		return 0, err
	}

	return orderID, nil
}

// CancelOrder cancels an order in pending or shipping state, restoring the
// stock of every line item in the same transaction as the status change.
// Cancelling a completed or already cancelled order fails with
// IllegalTransitionError.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return &IllegalTransitionError{OrderID: orderID, From: o.Status, To: StatusCancelled}
		}
		return s.cancelTx(ctx, tx, o)
	})
}

// Transition moves an order to newStatus according to the transition table.
// Transitioning to the current status is a no-op success. Transitioning to
// completed marks an unpaid order as paid; transitioning to cancelled restores
// stock exactly like CancelOrder.
func (s *Service) Transition(ctx context.Context, orderID int64, newStatus Status) error {
	if !newStatus.Valid() {
		return &IllegalTransitionError{OrderID: orderID, To: newStatus}
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == newStatus {
			return nil
		}
		if !o.Status.CanTransitionTo(newStatus) {
			return &IllegalTransitionError{OrderID: orderID, From: o.Status, To: newStatus}
		}

		if newStatus == StatusCancelled {
			return s.cancelTx(ctx, tx, o)
		}

		if newStatus == StatusCompleted && o.PaymentStatus == PaymentUnpaid {
			if err := tx.Orders().UpdatePaymentStatus(ctx, orderID, PaymentPaid); err != nil {
				return errors.Wrapf(err, "mark order %d paid", orderID)
			}
		}
		return tx.Orders().UpdateStatus(ctx, orderID, newStatus)
	})
}

// cancelTx restocks every line item and sets the status to cancelled, all
// inside the caller's transaction.
func (s *Service) cancelTx(ctx context.Context, tx Tx, o *Order) error {
	items, err := tx.Orders().ItemsByOrderID(ctx, o.ID)
	if err != nil {
		return errors.Wrapf(err, "load items for order %d", o.ID)
	}
	for _, item := range items {
		if _, err := tx.Ledger().Restock(ctx, item.ProductID, item.Quantity, inventory.ReasonCancellationRestock, s.actor); err != nil {
			return errors.Wrapf(err, "restock product %d", item.ProductID)
		}
	}
	return tx.Orders().UpdateStatus(ctx, o.ID, StatusCancelled)
}

// GetOrder loads an order together with its line items.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	o, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Orders().ItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "load items for order %d", orderID)
	}
	o.Items = items
	return o, nil
}

// ListCustomerOrders returns a customer's orders, newest first, without items.
func (s *Service) ListCustomerOrders(ctx context.Context, customerID int64) ([]Order, error) {
	return s.store.Orders().ListByCustomer(ctx, customerID)
}

// StatusCounts returns the number of orders in each lifecycle status.
func (s *Service) StatusCounts(ctx context.Context) (map[Status]int64, error) {
	counts := make(map[Status]int64, len(transitions))
	for st := range transitions {
		n, err := s.store.Orders().CountByStatus(ctx, st)
		if err != nil {
			return nil, errors.Wrapf(err, "count orders in status %s", st)
		}
		counts[st] = n
	}
	return counts, nil
}

// VerifyOrder reads an order back and checks that its stored total matches
// the sum of its item subtotals and that each subtotal matches
// quantity times unit price. A mismatch is an InvariantViolationError.
func (s *Service) VerifyOrder(ctx context.Context, orderID int64) error {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	sum := decimal.Zero
	for _, item := range o.Items {
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.Subtotal.Equal(expected) {
			return &InvariantViolationError{
				OrderID: orderID,
				Detail:  fmt.Sprintf("item subtotal for product %d does not match quantity * unit price", item.ProductID),
			}
		}
		sum = sum.Add(item.Subtotal)
	}
	if !o.Total.Equal(sum) {
		return &InvariantViolationError{
			OrderID: orderID,
			Detail:  "total " + o.Total.String() + " does not match item sum " + sum.String(),
		}
	}
	return nil
}
