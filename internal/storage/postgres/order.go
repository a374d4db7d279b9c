package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ordax/salesdesk/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository bound to db.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `order_id, customer_id, total_amount, status, payment_status, order_date`

// Insert persists the order row and returns the store-assigned identifier.
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) (int64, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO orders (customer_id, total_amount, status, payment_status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING order_id, order_date`,
		o.CustomerID, o.Total, string(o.Status), string(o.PaymentStatus),
	).Scan(&o.ID, &o.OrderDate)
	if err != nil {
		return 0, errors.Wrap(err, "inserting order")
	}
	return o.ID, nil
}

// InsertItems persists all line items for the given order in one round trip.
func (r *OrderRepository) InsertItems(ctx context.Context, orderID int64, items []order.OrderItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5)`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for range items {
		if _, err := br.Exec(); err != nil {
			return errors.Wrapf(err, "inserting items for order %d", orderID)
		}
	}
	return nil
}

// GetByID loads an order without its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate loads an order and locks its row for the duration of the
// enclosing transaction.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.getByID(ctx, id, true)
}

func (r *OrderRepository) getByID(ctx context.Context, id int64, forUpdate bool) (*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var o order.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.PaymentStatus, &o.OrderDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %d", id)
	}
	return &o, nil
}

// ItemsByOrderID loads the line items of an order.
func (r *OrderRepository) ItemsByOrderID(ctx context.Context, orderID int64) ([]order.OrderItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT order_id, product_id, quantity, unit_price, subtotal
		 FROM order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing items for order %d", orderID)
	}
	defer rows.Close()

	var items []order.OrderItem
	for rows.Next() {
		var item order.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, errors.Wrap(err, "scanning order item")
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByCustomer returns a customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]order.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY order_date DESC`, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing orders for customer %d", customerID)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Total, &o.Status, &o.PaymentStatus, &o.OrderDate); err != nil {
			return nil, errors.Wrap(err, "scanning order")
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus sets the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE order_id = $2`, string(status), id)
	if err != nil {
		return errors.Wrapf(err, "updating status of order %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// UpdatePaymentStatus sets the payment status.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status order.PaymentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET payment_status = $1 WHERE order_id = $2`, string(status), id)
	if err != nil {
		return errors.Wrapf(err, "updating payment status of order %d", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of orders in the given status.
func (r *OrderRepository) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "counting orders with status %s", status)
	}
	return count, nil
}
