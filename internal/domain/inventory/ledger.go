// Package inventory defines the stock ledger: every stock mutation goes
// through it and leaves exactly one audit trail entry, so replaying the log
// from a product's initial quantity reproduces its current quantity.
package inventory

import (
	"context"
	"fmt"
	"time"
)

// ChangeReason enumerates why a stock level changed.
type ChangeReason string

const (
	// ReasonSale records stock leaving due to an order line item.
	ReasonSale ChangeReason = "sale"
	// ReasonCancellationRestock records stock returned by a cancelled order.
	ReasonCancellationRestock ChangeReason = "cancellation_restock"
	// ReasonManualAdjustment records an operator-initiated correction.
	ReasonManualAdjustment ChangeReason = "manual_adjustment"
)

// LogEntry is one append-only audit record for a stock mutation.
type LogEntry struct {
	ID        int64
	ProductID int64
	Previous  int
	Current   int
	Change    int
	Reason    ChangeReason
	ChangedBy string
	ChangedAt time.Time
}

// InsufficientStockError indicates a reservation asked for more units than
// the product currently has.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Ledger owns per-product stock reads and writes. Mutating operations must be
// executed inside the caller's transaction scope; the ledger never opens its
// own. Row-level locking on the product row is the sole concurrency control.
type Ledger interface {
	// Reserve decrements stock by quantity and appends a ReasonSale entry.
	// Returns the new stock level, an InsufficientStockError when quantity
	// exceeds the current stock, or product.ErrNotFound.
	Reserve(ctx context.Context, productID int64, quantity int, actor string) (int, error)

	// Restock increments stock by quantity and appends an entry with the
	// given reason. Returns the new stock level.
	Restock(ctx context.Context, productID int64, quantity int, reason ChangeReason, actor string) (int, error)

	// Adjust applies a signed manual correction and appends a
	// ReasonManualAdjustment entry. Fails with InsufficientStockError when
	// the correction would drive stock below zero.
	Adjust(ctx context.Context, productID int64, change int, actor string) (int, error)

	// CurrentStock returns the stock level, or product.ErrNotFound.
	CurrentStock(ctx context.Context, productID int64) (int, error)

	// Entries returns the audit trail for a product, newest first.
	Entries(ctx context.Context, productID int64) ([]LogEntry, error)
}
