/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place, mapped onto the failure taxonomy the API
  layer needs:

    Validation  - bad input, rejected before any write          (HTTP 400)
    Conflict    - legal input colliding with current state      (HTTP 409)
    Not found   - missing record                                (HTTP 404)

  Domain packages wrap these with context; the API layer classifies with
  IsValidation / IsConflict / IsNotFound.

USAGE:
    if errors.Is(err, ledger.ErrOrderFinalized) {
        // terminal order, second approval attempt
    }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrPartyHasHistory is returned when deleting a party that already has
	// invoices or payments. Such parties are never deleted.
	ErrPartyHasHistory = errors.New("party has ledger history")

	// ErrOrderFinalized is returned on any transition attempt out of a
	// terminal order status. A second approval lands here, not on a second
	// posted invoice.
	ErrOrderFinalized = errors.New("order already finalized")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicatePosting is returned by the store when an order would post
	// a second invoice. Backs the service-level ErrOrderFinalized guard.
	ErrDuplicatePosting = errors.New("order already posted an invoice")

	// ErrConcurrentModification is returned when a conditional status update
	// loses a race. Safe to retry the whole logical operation.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes input rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
	Value  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (got %q)", e.Field, e.Reason, e.Value)
}

// TransitionError describes a disallowed status change with both sides.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsValidation reports whether the error is due to invalid client input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether the error is a state conflict (retry will not
// help without a state change).
func IsConflict(err error) bool {
	return errors.Is(err, ErrOrderFinalized) ||
		errors.Is(err, ErrPartyHasHistory) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicatePosting) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
