package settlement

import "fmt"

// OutOfStockError: no ledger row exists for the product, so there is
// no sellable inventory. Not retryable without changing the request.
type OutOfStockError struct {
	ProductID string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s has no stock on record", e.ProductID)
}

// InsufficientStockError carries what a user-facing message needs:
// the product and how much was actually available when the row was
// locked. Not retryable without changing the request.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// InvalidRequestError: malformed request, rejected before any
// transaction is opened.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid settlement request: " + e.Reason
}

// TransientError wraps lock timeouts, deadlocks and storage failures.
// The same request can be retried unchanged: a failed attempt rolled
// back entirely, so a retry never double-decrements.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient settlement failure: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }
