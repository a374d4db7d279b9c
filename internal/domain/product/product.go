package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item. Stock is the only field the order core
// mutates; name and description belong to the plain CRUD surface.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// GetByID returns a product by its identifier.
	// Returns ErrNotFound when no such product exists.
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
}
