package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ordax/salesdesk/internal/domain/product"
)

// ErrNoCustomers is returned when sampling from an empty customers table.
var ErrNoCustomers = errors.New("no customers to sample from")

// Sampler picks random existing rows for the batch driver, mirroring how the
// bulk data generator chooses customers and in-stock products.
type Sampler struct {
	db DBTX
}

// NewSampler returns a Sampler bound to db.
func NewSampler(db DBTX) *Sampler {
	return &Sampler{db: db}
}

// RandomCustomerID returns the identifier of a randomly chosen customer.
func (s *Sampler) RandomCustomerID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`SELECT customer_id FROM customers ORDER BY random() LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoCustomers
		}
		return 0, errors.Wrap(err, "sampling customer")
	}
	return id, nil
}

// RandomProducts returns up to n randomly chosen products that have stock.
func (s *Sampler) RandomProducts(ctx context.Context, n int) ([]product.Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT product_id, name, price, stock_quantity FROM products
		 WHERE stock_quantity > 0 ORDER BY random() LIMIT $1`, n)
	if err != nil {
		return nil, errors.Wrap(err, "sampling products")
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, errors.Wrap(err, "scanning sampled product")
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
