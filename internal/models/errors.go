package models

import "errors"

// Lifecycle error taxonomy. Guard violations are rejected synchronously with
// one of these sentinels; they are never coerced to the nearest valid state.
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidTransition      = errors.New("invalid order status transition")
	ErrTerminalState          = errors.New("order is in a terminal state")
	ErrAlreadyVerified        = errors.New("payment already verified")
	ErrConcurrentModification = errors.New("order modified concurrently, retry with fresh state")
	ErrProductUnavailable     = errors.New("product unavailable")
	ErrDuplicateOrderNumber   = errors.New("duplicate order number")
	ErrRefundExceedsTotal     = errors.New("refund amount exceeds refundable balance")
)
