package processor

import "errors"

var (
	// ErrIntentNotFound indicates the processor has no record of the
	// transaction id
	ErrIntentNotFound = errors.New("payment intent not found")

	// ErrUnauthorized indicates the processor rejected the credentials
	ErrUnauthorized = errors.New("processor rejected credentials")
)
