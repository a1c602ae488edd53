package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable failure category. Handlers map kinds to
// HTTP status classes; services compare kinds instead of string-matching.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindDuplicatePayment    Kind = "duplicate_payment"
	KindInvalidState        Kind = "invalid_state"
	KindInvalidAmount       Kind = "invalid_amount"
	KindInvalidSignature    Kind = "invalid_signature"
	KindGatewayFailure      Kind = "gateway_integration_failure"
	KindNoCheckoutAvailable Kind = "no_checkout_available"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error         { return New(KindNotFound, message) }
func DuplicatePayment(message string) *Error { return New(KindDuplicatePayment, message) }
func InvalidState(message string) *Error     { return New(KindInvalidState, message) }
func InvalidAmount(message string) *Error    { return New(KindInvalidAmount, message) }
func InvalidSignature(message string) *Error { return New(KindInvalidSignature, message) }

func GatewayFailure(message string, err error) *Error {
	return Wrap(KindGatewayFailure, message, err)
}

func NoCheckoutAvailable(message string) *Error { return New(KindNoCheckoutAvailable, message) }

// KindOf returns the kind of err if it is an *Error, or "" otherwise.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
