package customer

import (
	"context"
	"time"
)

// Customer is the minimal view of a customer the order core needs.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Repository defines the customer operations the order core depends on.
type Repository interface {
	// Exists reports whether a customer with the given identifier exists.
	Exists(ctx context.Context, id int64) (bool, error)
}
