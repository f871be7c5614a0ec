package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrUnauthorized       = errors.New("not authorized for this order")
	ErrInvalidTransition  = errors.New("invalid order transition")
	ErrPreconditionFailed = errors.New("order precondition failed")
	ErrValidation         = errors.New("invalid order input")

	// ErrAlreadyAccepted is the accept-race loser's error. It matches
	// ErrInvalidTransition under errors.Is.
	ErrAlreadyAccepted = fmt.Errorf("%w: already accepted", ErrInvalidTransition)
)
