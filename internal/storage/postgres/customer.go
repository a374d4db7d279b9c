package postgres

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/ordax/salesdesk/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository returns a CustomerRepository bound to db.
func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Exists reports whether a customer with the given identifier exists.
func (r *CustomerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "checking customer %d", id)
	}
	return exists, nil
}
