package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("action not allowed for actor")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidAmount      = errors.New("invalid amount")

	// ErrPersistence wraps any durable store failure. The mutation flow keeps
	// going in-memory when it sees this error.
	ErrPersistence        = errors.New("status not persisted")
	ErrCapacityExceeded   = errors.New("storage capacity exceeded")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
