package order

import "fmt"

// Sentinel errors for order validation.
var (
	ErrEmptyOrder = fmt.Errorf("order must contain at least one item")
	ErrNotFound   = fmt.Errorf("order not found")
)

// CustomerNotFoundError indicates the requested customer does not exist.
type CustomerNotFoundError struct {
	CustomerID int64
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer %d not found", e.CustomerID)
}

// ProductNotFoundError indicates a line item references a missing product.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// IllegalTransitionError indicates a status change outside the allowed
// transition table.
type IllegalTransitionError struct {
	OrderID int64
	From    Status
	To      Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %d: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}

// InvariantViolationError indicates persisted data contradicts a core
// invariant; it is never silently tolerated.
type InvariantViolationError struct {
	OrderID int64
	Detail  string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("order %d: invariant violation: %s", e.OrderID, e.Detail)
}
