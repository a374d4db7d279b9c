package order

import "fmt"

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipping  Status = "shipping"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks whether an order has been paid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// transitions is the full allowed-transition table. Completed and cancelled
// are terminal and admit no outgoing transitions.
var transitions = map[Status][]Status{
	StatusPending:   {StatusShipping, StatusCompleted, StatusCancelled},
	StatusShipping:  {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s admits no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the transition s -> next is allowed.
// A transition to the same status is not in the table; callers treat it as a
// no-op before consulting the matrix.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus converts a string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}
