package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness violation.
	ErrAlreadyExists = errors.New("already exists")
	// ErrCartNotFound is returned when a group cart id does not resolve.
	ErrCartNotFound = errors.New("group cart not found")
	// ErrOwnerInvalid is returned when a cart is created without an owner id.
	ErrOwnerInvalid = errors.New("owner id required")
	// ErrTransactionAborted is returned when an item merge keeps conflicting.
	ErrTransactionAborted = errors.New("transaction aborted")
	// ErrNetworkFailure wraps failures of outbound calls (AI, image lookup, API).
	ErrNetworkFailure = errors.New("network failure")
	// ErrValidation indicates malformed input or a schema mismatch.
	ErrValidation = errors.New("validation failed")
	// ErrNotMember is returned when a non-member mutates a group cart.
	ErrNotMember = errors.New("user is not a member of the group cart")
	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrVersionConflict is returned by stores when a compare-and-swap fails.
	ErrVersionConflict = errors.New("version conflict")
)
