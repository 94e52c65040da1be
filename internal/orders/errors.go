package orders

import "errors"

var (
	// ErrInvalidRequest means the submission was incomplete. Nothing was
	// notified or written.
	ErrInvalidRequest = errors.New("invalid order request")

	// ErrPersistence means the catalog could not be read, parsed or
	// written. The operator may already have been notified.
	ErrPersistence = errors.New("order persistence failed")
)
