package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/ordax/salesdesk/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository returns a ProductRepository bound to db.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns a product by its identifier.
// Returns product.ErrNotFound when no such product exists.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	var p product.Product
	err := r.db.QueryRow(ctx,
		`SELECT product_id, name, price, stock_quantity FROM products WHERE product_id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %d", id)
	}
	return &p, nil
}

// List returns the full product catalog ordered by identifier.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT product_id, name, price, stock_quantity FROM products ORDER BY product_id`)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, errors.Wrap(err, "scanning product")
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
