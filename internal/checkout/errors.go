package checkout

import (
	"errors"
	"fmt"
)

var ErrEmptyCart = errors.New("cart is empty")

type Kind string

const (
	// KindRejected: the order service refused the order (4xx or a body
	// marking failure). Retrying unchanged will not help.
	KindRejected Kind = "rejected"
	// KindUnavailable: transport failure, timeout or 5xx. Safe to retry.
	KindUnavailable Kind = "unavailable"
	// KindInvalidResponse: 2xx without a usable confirmation.
	KindInvalidResponse Kind = "invalid_response"
)

// Error is a failed checkout. Message is safe to show to the user; the cart
// is untouched whenever an Error is returned.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("checkout %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsKind(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
