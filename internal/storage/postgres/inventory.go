package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ordax/salesdesk/internal/domain/inventory"
	"github.com/ordax/salesdesk/internal/domain/product"
)

var _ inventory.Ledger = (*Ledger)(nil)

// Ledger implements inventory.Ledger backed by PostgreSQL. Mutations perform
// a read-then-write on the product row under SELECT ... FOR UPDATE; when
// bound to a transaction the lock is held until commit, which serializes
// concurrent reservations against the same product.
type Ledger struct {
	db DBTX
}

// NewLedger returns a Ledger bound to db.
func NewLedger(db DBTX) *Ledger {
	return &Ledger{db: db}
}

// Reserve decrements stock by quantity and appends a sale audit entry.
func (l *Ledger) Reserve(ctx context.Context, productID int64, quantity int, actor string) (int, error) {
	stock, err := l.lockStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	if quantity > stock {
		return 0, &inventory.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: stock,
		}
	}
	newStock := stock - quantity
	if err := l.writeStock(ctx, productID, stock, newStock, inventory.ReasonSale, actor); err != nil {
		return 0, err
	}
	return newStock, nil
}

// Restock increments stock by quantity and appends an audit entry with the
// given reason.
func (l *Ledger) Restock(ctx context.Context, productID int64, quantity int, reason inventory.ChangeReason, actor string) (int, error) {
	stock, err := l.lockStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	newStock := stock + quantity
	if err := l.writeStock(ctx, productID, stock, newStock, reason, actor); err != nil {
		return 0, err
	}
	return newStock, nil
}

// Adjust applies a signed manual correction to the stock level.
func (l *Ledger) Adjust(ctx context.Context, productID int64, change int, actor string) (int, error) {
	stock, err := l.lockStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	newStock := stock + change
	if newStock < 0 {
		return 0, &inventory.InsufficientStockError{
			ProductID: productID,
			Requested: -change,
			Available: stock,
		}
	}
	if err := l.writeStock(ctx, productID, stock, newStock, inventory.ReasonManualAdjustment, actor); err != nil {
		return 0, err
	}
	return newStock, nil
}

// CurrentStock returns the stock level without locking the row.
func (l *Ledger) CurrentStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := l.db.QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE product_id = $1`, productID,
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, errors.Wrapf(err, "reading stock for product %d", productID)
	}
	return stock, nil
}

// Entries returns the audit trail for a product, newest first.
func (l *Ledger) Entries(ctx context.Context, productID int64) ([]inventory.LogEntry, error) {
	rows, err := l.db.Query(ctx,
		`SELECT log_id, product_id, previous_quantity, current_quantity, change_amount, change_type, changed_by, changed_at
		 FROM inventory_logs WHERE product_id = $1 ORDER BY changed_at DESC, log_id DESC`, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing inventory logs for product %d", productID)
	}
	defer rows.Close()

	var entries []inventory.LogEntry
	for rows.Next() {
		var e inventory.LogEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.Previous, &e.Current, &e.Change, &e.Reason, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, errors.Wrap(err, "scanning inventory log entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// lockStock reads the current stock with a row lock.
func (l *Ledger) lockStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := l.db.QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE product_id = $1 FOR UPDATE`, productID,
	).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, errors.Wrapf(err, "locking product %d", productID)
	}
	return stock, nil
}

// writeStock updates the stock level and appends the matching audit entry.
func (l *Ledger) writeStock(ctx context.Context, productID int64, previous, current int, reason inventory.ChangeReason, actor string) error {
	if _, err := l.db.Exec(ctx,
		`UPDATE products SET stock_quantity = $1 WHERE product_id = $2`, current, productID,
	); err != nil {
		return errors.Wrapf(err, "updating stock for product %d", productID)
	}
	if _, err := l.db.Exec(ctx,
		`INSERT INTO inventory_logs (product_id, previous_quantity, current_quantity, change_amount, change_type, changed_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		productID, previous, current, current-previous, string(reason), actor,
	); err != nil {
		return errors.Wrapf(err, "appending inventory log for product %d", productID)
	}
	return nil
}
