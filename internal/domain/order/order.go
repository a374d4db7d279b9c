package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ordax/salesdesk/internal/domain/customer"
	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/product"
)

// Order represents a customer order together with its line items.
// Invariant: Total equals the sum of item subtotals.
type Order struct {
	ID            int64
	CustomerID    int64
	Items         []OrderItem
	Total         decimal.Decimal
	Status        Status
	PaymentStatus PaymentStatus
	OrderDate     time.Time
}

// OrderItem is a single line item. UnitPrice is captured at order-creation
// time and never changes afterwards, even if the product's price does.
type OrderItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Repository defines persistence operations for orders. Mutating methods run
// against the transaction the repository is bound to.
type Repository interface {
	// Insert persists the order row and returns the store-assigned identifier.
	Insert(ctx context.Context, o *Order) (int64, error)
	// InsertItems persists all line items for the given order.
	InsertItems(ctx context.Context, orderID int64, items []OrderItem) error
	// GetByID loads an order without its items.
	// Returns ErrNotFound when no such order exists.
	GetByID(ctx context.Context, id int64) (*Order, error)
	// GetByIDForUpdate loads an order and locks its row for the duration of
	// the enclosing transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*Order, error)
	// ItemsByOrderID loads the line items of an order.
	ItemsByOrderID(ctx context.Context, orderID int64) ([]OrderItem, error)
	// ListByCustomer returns a customer's orders, newest first.
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	// UpdateStatus sets the order status.
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// UpdatePaymentStatus sets the payment status.
	UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) error
	// CountByStatus returns the number of orders in the given status.
	CountByStatus(ctx context.Context, status Status) (int64, error)
}

// Tx exposes the repositories bound to one transaction (or, outside an
// explicit scope, to the pool for plain auto-commit reads).
type Tx interface {
	Customers() customer.Repository
	Products() product.Repository
	Orders() Repository
	Ledger() inventory.Ledger
}

// Store is the transaction scope contract: WithinTx acquires one connection,
// runs fn against it, commits when fn returns nil and rolls back otherwise.
// The embedded Tx accessors serve reads outside any explicit scope.
type Store interface {
	Tx

	// WithinTx executes fn inside a single transaction on a dedicated
	// connection. Exactly one of commit or rollback happens before it
	// returns. When no connection can be acquired it fails with
	// ErrConnectionUnavailable without invoking fn.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
