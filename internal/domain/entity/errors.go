package entity

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors match them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrPrecision   = errors.New("precision error")
	ErrAuth        = errors.New("auth error")
	ErrTransaction = errors.New("transaction error")
	ErrNetwork     = errors.New("network error")
)

// FlowError is a user-facing error of one class, optionally wrapping the cause.
type FlowError struct {
	Class   error
	Message string
	Cause   error
}

func (e *FlowError) Error() string { return e.Message }

func (e *FlowError) Is(target error) bool { return target == e.Class }

func (e *FlowError) Unwrap() error { return e.Cause }

// NewValidationError builds a client-side validation failure.
func NewValidationError(msg string) *FlowError {
	return &FlowError{Class: ErrValidation, Message: msg}
}

// AmountErrorReason enumerates why an amount was rejected.
type AmountErrorReason string

const (
	AmountInvalid      AmountErrorReason = "invalid"
	AmountInsufficient AmountErrorReason = "insufficient"
	AmountUnderflow    AmountErrorReason = "underflow"
)

// AmountError is a PrecisionError: the amount failed a decimal, underflow or balance check.
type AmountError struct {
	Reason   AmountErrorReason
	Amount   string
	Network  string
	Symbol   string
	Decimals int
}

func (e *AmountError) Error() string {
	switch e.Reason {
	case AmountInsufficient:
		return fmt.Sprintf("insufficient %s balance on %s for %s", e.Symbol, e.Network, e.Amount)
	case AmountUnderflow:
		return fmt.Sprintf("amount %s is below the smallest unit on %s (%d decimals)", e.Amount, e.Network, e.Decimals)
	default:
		return fmt.Sprintf("invalid amount %q", e.Amount)
	}
}

func (e *AmountError) Is(target error) bool { return target == ErrPrecision }

// APIError is a non-success answer of the wallet service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wallet api status %d: %s", e.StatusCode, e.Message)
}
