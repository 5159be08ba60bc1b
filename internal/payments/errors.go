package payments

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrSessionNotFound  = errors.New("payment session not found")
	ErrOrderAlreadyPaid = errors.New("order already paid")

	// ErrAlreadySettled signals that another delivery won the settlement
	// race. Callers absorb it; at-least-once webhook delivery makes it an
	// expected outcome, not a failure.
	ErrAlreadySettled = errors.New("order already settled")

	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// GatewayError wraps a failure talking to the payment gateway so handlers
// can map it separately from local storage errors.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
