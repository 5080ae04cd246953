package domain

import "errors"

var (
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected by the current record state.
	ErrConflict = errors.New("conflict")
	// ErrIdentityMissing marks a subscription without the id required to key
	// a payment or a reminder. This points at a data-integrity problem
	// upstream and is not retryable.
	ErrIdentityMissing = errors.New("subscription id missing")
	// ErrInactive marks a mutation attempted on a deactivated subscription.
	ErrInactive = errors.New("subscription is inactive")
)
