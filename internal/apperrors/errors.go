package apperrors

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound - referenced payment does not exist in the ledger
	ErrNotFound = errors.New("not found")
	// ErrNotYetFinal - a status report was requested before the settlement decision
	ErrNotYetFinal = errors.New("payment is not yet final")
	// ErrIdempotencyConflict - a repeated idempotency key arrived with a different request body
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
	// ErrInvalidTransition - the requested status transition is not allowed from the current status
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnsupportedMessage - the requested message kind has no renderer
	ErrUnsupportedMessage = errors.New("unsupported message kind")
)

// ValidationError carries every field violation found in a request, in check order.
type ValidationError struct {
	Details []string
}

// Append adds a violation
func (e *ValidationError) Append(detail ...string) {
	e.Details = append(e.Details, detail...)
}

// Empty reports whether no violation was recorded
func (e *ValidationError) Empty() bool {
	return len(e.Details) == 0
}

func (e *ValidationError) Error() string {
	return "validation: " + strings.Join(e.Details, ", ")
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
