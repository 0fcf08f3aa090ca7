// Package errs declares the error taxonomy shared by the order and stock
// services. Call sites wrap these sentinels with pkg/errors so callers can
// classify with errors.Is while keeping the descriptive message.
package errs

import "errors"

var (
	// ErrValidation marks a malformed or out-of-range request.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing customer, product or order.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an illegal state transition or guarded delete.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientStock marks a stock check or deduction that cannot be
	// satisfied. Treated as a conflict by the HTTP surface.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDependencyUnavailable marks a peer call that exhausted its retries
	// or hit an open circuit. Retryable by the caller.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrMessaging marks a broker send that failed.
	ErrMessaging = errors.New("messaging failure")
)
